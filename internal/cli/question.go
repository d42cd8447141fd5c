package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var questionHeaders = []string{"ID", "KEY", "TYPE", "QUESTION"}

func questionRow(q QuestionResponse) []string {
	return []string{q.ID, q.NaturalKey, q.DataType, q.Question}
}

// NewQuestionCmd создаёт группу команд для управления вопросами.
func NewQuestionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "question",
		Short: "Manage reusable questions",
	}

	cmd.AddCommand(
		newQuestionCreateCmd(clientFn, outputFn),
		newQuestionShowCmd(clientFn, outputFn),
		newQuestionUpdateCmd(clientFn, outputFn),
		newQuestionDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newQuestionCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var category, dataType string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a question with a blank config",
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := clientFn().CreateQuestion(category, dataType)
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Question created: %s", question.ID))
			out.Print(questionHeaders, [][]string{questionRow(*question)}, question)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "PROPOSAL_QUESTIONARY", "Question category")
	cmd.Flags().StringVar(&dataType, "type", "", "Data type, e.g. TEXT_INPUT (required)")
	cmd.MarkFlagRequired("type")

	return cmd
}

func newQuestionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show question details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := clientFn().GetQuestion(args[0])
			if err != nil {
				return err
			}
			outputFn().Print(questionHeaders, [][]string{questionRow(*question)}, question)
			return nil
		},
	}
}

func newQuestionUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var key, text, configFile string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req UpdateQuestionRequest
			if cmd.Flags().Changed("key") {
				req.NaturalKey = &key
			}
			if cmd.Flags().Changed("question") {
				req.Question = &text
			}
			if configFile != "" {
				data, err := os.ReadFile(configFile)
				if err != nil {
					return fmt.Errorf("failed to read config file: %w", err)
				}
				if !json.Valid(data) {
					return fmt.Errorf("invalid JSON in config file")
				}
				req.Config = data
			}

			question, err := clientFn().UpdateQuestion(args[0], req)
			if err != nil {
				return err
			}
			outputFn().Print(questionHeaders, [][]string{questionRow(*question)}, question)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "New natural key")
	cmd.Flags().StringVar(&text, "question", "", "New question text")
	cmd.Flags().StringVarP(&configFile, "config", "f", "", "Path to JSON config file")

	return cmd
}

func newQuestionDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteQuestion(args[0]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Question deleted: %s", args[0]))
			return nil
		},
	}
}
