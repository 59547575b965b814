package main

import (
	"compress/bzip2"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/veriface/veriface/pkg/logging"
)

// dlibModels are the files the detector expects in its model directory.
var dlibModels = []struct {
	Name string
	URL  string
}{
	{
		Name: "shape_predictor_5_face_landmarks.dat",
		URL:  "http://dlib.net/files/shape_predictor_5_face_landmarks.dat.bz2",
	},
	{
		Name: "dlib_face_recognition_resnet_model_v1.dat",
		URL:  "http://dlib.net/files/dlib_face_recognition_resnet_model_v1.dat.bz2",
	},
	{
		Name: "mmod_human_face_detector.dat",
		URL:  "http://dlib.net/files/mmod_human_face_detector.dat.bz2",
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download-models [dir]",
	Short: "Download the dlib detector models",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDownloadModels,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}

func runDownloadModels(cmd *cobra.Command, args []string) error {
	modelDir := cfg.Detector.ModelDir
	if len(args) == 1 {
		modelDir = args[0]
	}

	logging.Infof("Downloading models to: %s", modelDir)

	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	for _, model := range dlibModels {
		targetPath := filepath.Join(modelDir, model.Name)
		if _, err := os.Stat(targetPath); err == nil {
			fmt.Printf("%s already exists, skipping.\n", model.Name)
			continue
		}

		if err := downloadAndExtract(cmd.Context(), model.URL, model.Name, targetPath); err != nil {
			return fmt.Errorf("failed to download %s: %w", model.Name, err)
		}
	}

	fmt.Println("All models downloaded.")
	return nil
}

func downloadAndExtract(ctx context.Context, url, name, targetPath string) error {
	client := &http.Client{
		Timeout: 10 * time.Minute,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	// The bar tracks compressed bytes; dlib publishes bz2 archives.
	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetDescription(name),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
	)

	out, err := os.Create(targetPath)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, bzip2.NewReader(io.TeeReader(resp.Body, bar))); err != nil {
		os.Remove(targetPath)
		return err
	}
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	return nil
}
