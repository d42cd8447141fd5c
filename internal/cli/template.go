package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var templateHeaders = []string{"ID", "CATEGORY", "NAME", "ARCHIVED", "CREATED"}

func templateRow(t TemplateResponse) []string {
	return []string{t.ID, t.CategoryID, t.Name, strconv.FormatBool(t.IsArchived), t.CreatedAt}
}

// NewTemplateCmd создаёт группу команд для управления шаблонами.
func NewTemplateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage questionary templates",
	}

	cmd.AddCommand(
		newTemplateListCmd(clientFn, outputFn),
		newTemplateCreateCmd(clientFn, outputFn),
		newTemplateShowCmd(clientFn, outputFn),
		newTemplateArchiveCmd(clientFn, outputFn),
		newTemplateDeleteCmd(clientFn, outputFn),
		newTemplateAttachCmd(clientFn, outputFn),
		newTemplateDetachCmd(clientFn, outputFn),
		newTemplateImportCmd(clientFn, outputFn),
	)

	return cmd
}

func newTemplateListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var category string
	var archived string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			opts := ListTemplatesOpts{Category: category}
			if archived != "" {
				v, err := strconv.ParseBool(archived)
				if err != nil {
					return fmt.Errorf("invalid --archived value: %s", archived)
				}
				opts.Archived = &v
			}

			templates, err := client.ListTemplates(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(templates))
			for i, t := range templates {
				rows[i] = templateRow(t)
			}

			out.Print(templateHeaders, rows, templates)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	cmd.Flags().StringVar(&archived, "archived", "", "Filter by archived flag (true/false)")

	return cmd
}

func newTemplateCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var category, name, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty template",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			template, err := client.CreateTemplate(category, name, description)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Template created: %s", template.ID))
			out.Print(templateHeaders, [][]string{templateRow(*template)}, template)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "PROPOSAL_QUESTIONARY", "Template category")
	cmd.Flags().StringVar(&name, "name", "", "Template name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Template description")
	cmd.MarkFlagRequired("name")

	return cmd
}

func newTemplateShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show template topics and fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			template, err := client.GetTemplate(args[0])
			if err != nil {
				return err
			}

			headers := []string{"TOPIC", "ORDER", "QUESTION", "KEY", "TYPE", "DEPENDS ON"}
			var rows [][]string
			for _, step := range template.Steps {
				for _, f := range step.Fields {
					dependsOn := ""
					if f.Dependency != nil {
						dependsOn = f.Dependency.DependencyNaturalKey + " " + f.Dependency.Condition.Operator
					}
					rows = append(rows, []string{
						step.Topic.Title,
						strconv.Itoa(f.SortOrder),
						f.Question.ID,
						f.Question.NaturalKey,
						f.Question.DataType,
						dependsOn,
					})
				}
			}

			out.Print(headers, rows, template)
			return nil
		},
	}
}

func newTemplateArchiveCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var unarchive bool

	cmd := &cobra.Command{
		Use:   "archive ID",
		Short: "Archive or unarchive a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			archived := !unarchive
			template, err := client.UpdateTemplate(args[0], UpdateTemplateRequest{IsArchived: &archived})
			if err != nil {
				return err
			}

			out.Print(templateHeaders, [][]string{templateRow(*template)}, template)
			return nil
		},
	}

	cmd.Flags().BoolVar(&unarchive, "undo", false, "Unarchive instead")

	return cmd
}

func newTemplateDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a template without questionaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteTemplate(args[0]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Template deleted: %s", args[0]))
			return nil
		},
	}
}

func newTemplateAttachCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var topicID string

	cmd := &cobra.Command{
		Use:   "attach TEMPLATE_ID QUESTION_ID",
		Short: "Attach a question to a template topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := clientFn().UpdateQuestionRel(args[0], args[1], UpdateQuestionRelRequest{TopicID: &topicID}); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Question %s attached", args[1]))
			return nil
		},
	}

	cmd.Flags().StringVar(&topicID, "topic", "", "Topic ID (required)")
	cmd.MarkFlagRequired("topic")

	return cmd
}

func newTemplateDetachCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "detach TEMPLATE_ID QUESTION_ID",
		Short: "Detach a question from a template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteQuestionRel(args[0], args[1]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Question %s detached", args[1]))
			return nil
		},
	}
}

func newTemplateImportCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create a template from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer f.Close()

			tf, err := ParseTemplateFile(f)
			if err != nil {
				return err
			}

			id, err := ImportTemplate(clientFn(), tf)
			if err != nil {
				if id != "" {
					return fmt.Errorf("template %s partially imported: %w", id, err)
				}
				return err
			}

			outputFn().Success(fmt.Sprintf("Template imported: %s", id))
			return nil
		},
	}
}
