package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/veriface/veriface/pkg/embedding"
	"github.com/veriface/veriface/pkg/features"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <image>",
	Short: "Print the extracted feature record and embedding as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	engine, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer engine.Close()

	det, err := newDetector()
	if err != nil {
		return err
	}
	defer det.Close()

	record, err := extractRecord(engine, det, args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	vec, err := engine.BuildEmbedding(record)
	if err != nil {
		return err
	}

	out := struct {
		Record    features.Record  `json:"record"`
		Embedding embedding.Vector `json:"embedding"`
		Length    int              `json:"embedding_length"`
	}{record, vec, len(vec)}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
