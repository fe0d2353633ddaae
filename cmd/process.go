package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/visapath/i20-processor/internal/event"
	"github.com/visapath/i20-processor/internal/model"
)

var (
	processBucket string
	processKey    string
	processUser   string
	processDoc    string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process one uploaded I-20 document",
	Long:  "Runs the full pipeline for a single object. The key must follow user_id/document_id/filename.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		userID, documentID, err := event.SplitKey(processKey)
		if err != nil {
			return err
		}
		if processUser != "" {
			userID = processUser
		}
		if processDoc != "" {
			documentID = processDoc
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		loc := model.DocumentLocation{Bucket: processBucket, Key: processKey}
		if _, err := env.Store.CreateDocument(ctx, userID, documentID, loc); err != nil {
			return err
		}

		outcome := env.Processor.Process(ctx, userID, documentID, loc)

		out := map[string]any{
			"document_id": documentID,
			"status":      outcome.Status(),
			"stage":       outcome.Stage(),
			"message":     outcome.Message(),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return eris.Wrap(err, "encode outcome")
		}

		if outcome.Status() == model.StatusFailed {
			return fmt.Errorf("processing failed: %s", outcome.Message())
		}
		return nil
	},
}

func init() {
	processCmd.Flags().StringVar(&processBucket, "bucket", "", "bucket holding the document (required)")
	processCmd.Flags().StringVar(&processKey, "key", "", "object key: user_id/document_id/filename (required)")
	processCmd.Flags().StringVar(&processUser, "user", "", "override the user ID derived from the key")
	processCmd.Flags().StringVar(&processDoc, "document", "", "override the document ID derived from the key")
	processCmd.MarkFlagRequired("bucket")
	processCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(processCmd)
}
