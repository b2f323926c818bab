package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	storytrace "github.com/storytrace/storytrace-go"
)

const storyPrompt = `Write a short, heartwarming story (150-200 words) about an
unlikely friendship. Give it a clear beginning, middle, and end.`

var storyCmd = &cobra.Command{
	Use:   "story",
	Short: "Generate a single story with a minimal trace",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		_, client, gen, err := setup(ctx)
		if err != nil {
			return fail(err)
		}
		defer client.Shutdown()

		trace, ctx := storytrace.StartTrace(ctx, storytrace.TraceOptions{
			Name: "story-generation",
			Tags: []string{"demo", "simple"},
		})

		var story string
		err = storytrace.Observe(ctx, "story", func(ctx context.Context) error {
			story, err = generateText(ctx, gen, "write-story", storyPrompt)
			return err
		})
		if err != nil {
			if trace != nil {
				trace.End(nil)
			}
			return fail(err)
		}

		if trace != nil {
			trace.End(&storytrace.TraceEndOptions{Output: story})
		}

		printHeader("Generated Story")
		fmt.Println(story)
		return nil
	},
}
