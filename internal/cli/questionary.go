package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var questionaryHeaders = []string{"ID", "TEMPLATE", "CREATOR", "PARENT", "CREATED"}

func questionaryRow(q QuestionaryResponse) []string {
	return []string{q.ID, q.TemplateID, strconv.FormatInt(q.CreatorID, 10), q.ParentID, q.CreatedAt}
}

// NewQuestionaryCmd создаёт группу команд для работы с анкетами.
func NewQuestionaryCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "questionary",
		Aliases: []string{"q"},
		Short:   "Fill in questionaries",
	}

	cmd.AddCommand(
		newQuestionaryCreateCmd(clientFn, outputFn),
		newQuestionaryShowCmd(clientFn, outputFn),
		newQuestionaryStepsCmd(clientFn, outputFn),
		newQuestionaryAnswerCmd(clientFn, outputFn),
		newQuestionaryCompleteCmd(clientFn, outputFn),
		newQuestionaryCloneCmd(clientFn, outputFn),
		newQuestionaryDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newQuestionaryCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "create TEMPLATE_ID",
		Short: "Create a questionary from a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			questionary, err := clientFn().CreateQuestionary(args[0])
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Questionary created: %s", questionary.ID))
			out.Print(questionaryHeaders, [][]string{questionaryRow(*questionary)}, questionary)
			return nil
		},
	}
}

func newQuestionaryShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show questionary details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			questionary, err := clientFn().GetQuestionary(args[0])
			if err != nil {
				return err
			}
			outputFn().Print(questionaryHeaders, [][]string{questionaryRow(*questionary)}, questionary)
			return nil
		},
	}
}

func newQuestionaryStepsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "steps ID",
		Short: "Show questionary topics with answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := clientFn().GetQuestionarySteps(args[0])
			if err != nil {
				return err
			}

			headers := []string{"TOPIC", "COMPLETE", "QUESTION", "KEY", "VALUE"}
			var rows [][]string
			for _, step := range steps {
				for _, f := range step.Fields {
					if !f.IsVisible && !all {
						continue
					}
					rows = append(rows, []string{
						step.Topic.Title,
						strconv.FormatBool(step.IsComplete),
						f.Question.ID,
						f.Question.NaturalKey,
						f.Value,
					})
				}
			}

			outputFn().Print(headers, rows, steps)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include hidden fields")

	return cmd
}

func newQuestionaryAnswerCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "answer ID QUESTION_ID VALUE",
		Short: "Set an answer",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().UpdateAnswer(args[0], args[1], args[2]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Answer saved: %s", args[1]))
			return nil
		},
	}
}

func newQuestionaryCompleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "complete ID TOPIC_ID",
		Short: "Mark a topic as complete",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().UpdateTopicCompleteness(args[0], args[1], !undo); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Topic %s complete: %t", args[1], !undo))
			return nil
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "Mark as incomplete instead")

	return cmd
}

func newQuestionaryCloneCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "clone ID",
		Short: "Clone a questionary with its answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clone, err := clientFn().CloneQuestionary(args[0])
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Questionary cloned: %s", clone.ID))
			out.Print(questionaryHeaders, [][]string{questionaryRow(*clone)}, clone)
			return nil
		},
	}
}

func newQuestionaryDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a questionary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteQuestionary(args[0]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Questionary deleted: %s", args[0]))
			return nil
		},
	}
}
