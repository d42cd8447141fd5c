// questionaryctl — инструмент командной строки для работы
// с шаблонами, вопросами и анкетами через HTTP API.
//
// Использование:
//
//	questionaryctl [--api-url URL] [--user ID] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	template     Управление шаблонами (в т.ч. импорт из YAML)
//	question     Управление вопросами
//	questionary  Заполнение анкет
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Questionary/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var userID string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "questionaryctl",
		Short:         "questionaryctl — questionary templates and answers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().StringVar(&userID, "user", os.Getenv("QUESTIONARY_USER"), "User ID sent as X-User-Id")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL, userID) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewTemplateCmd(clientFn, outputFn),
		cli.NewQuestionCmd(clientFn, outputFn),
		cli.NewQuestionaryCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
