// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdfmask CLI: a single-shot tool
// that rewrites the raster images embedded in a PDF by filtering them
// (blur, emboss, grayscale, blacken) and optionally overlaying an
// AI-generated caption on each.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/pdfmask/internal/describe"
	"github.com/pdiddy/pdfmask/internal/imagefilter"
	"github.com/pdiddy/pdfmask/internal/pipeline"
	"github.com/pdiddy/pdfmask/internal/secrets"
	"github.com/pdiddy/pdfmask/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the pdfmask CLI. It is directly runnable:
// the tool has a single verb.
var rootCmd = &cobra.Command{
	Use:   "pdfmask [pdf_file]",
	Short: "Filter and caption the images embedded in a PDF",
	Long: `pdfmask extracts every raster image embedded in a PDF, applies the
selected filters (blur, emboss, grayscale, blacken), optionally asks an
OpenAI vision model for a short description of each image and draws that
description onto it, then writes a new PDF with the modified images
substituted in place. Image count, order, and page placement are preserved.

Images are processed strictly one after another in document order; any
fatal error aborts the run without producing partial output.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; a missing file is not an error.
		_ = godotenv.Load()

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
	RunE: run,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdfmask.yaml or ~/.config/pdfmask/config.yaml)")

	rootCmd.Flags().StringP("output-file", "o", "", "output path (default: <input stem>.masked.pdf)")
	rootCmd.Flags().BoolP("verbose", "v", false, "enable diagnostic logging")

	rootCmd.Flags().Int("blur", 0, "apply a Gaussian blur with the given radius, 0-50")
	rootCmd.Flags().Bool("gray", false, "grayscale the images")
	rootCmd.Flags().Bool("black", false, "blacken the images (pure black/white threshold)")
	rootCmd.Flags().Bool("emboss", false, "apply an emboss effect to the images")

	rootCmd.Flags().Bool("describe", false, "caption each image via the OpenAI API")
	rootCmd.Flags().String("openai-key", "", "OpenAI API key (also .secrets/openai-api-key or PDFMASK_OPENAI_KEY)")
	rootCmd.Flags().String("model", types.DefaultModel, "vision model used for captions")
	rootCmd.Flags().String("description-prompt", types.DefaultPrompt, "prompt sent with each image")
	rootCmd.Flags().Int("max-openai-tokens", types.DefaultMaxTokens, "caption length cap per request")
	rootCmd.Flags().Int("font-size", types.DefaultFontSize, "overlay text size")

	rootCmd.Flags().Bool("keep-going", false, "skip caption failures instead of aborting the run")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdfmask")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdfmask"))
		}
	}

	viper.SetEnvPrefix("PDFMASK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(rootCmd.Flags()); err != nil {
		fmt.Fprintln(os.Stderr, "binding flags:", err)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// run assembles the options from flags, config, environment, and secrets,
// validates them, and hands off to the pipeline.
func run(cmd *cobra.Command, args []string) error {
	opts := types.Options{
		InputPath:  args[0],
		OutputPath: viper.GetString("output-file"),
		KeepGoing:  viper.GetBool("keep-going"),
		Filter: types.FilterConfig{
			Blur:   viper.GetInt("blur"),
			Emboss: viper.GetBool("emboss"),
			Gray:   viper.GetBool("gray"),
			Black:  viper.GetBool("black"),
		},
		Describe: types.DescribeConfig{
			Enabled:   viper.GetBool("describe"),
			Model:     viper.GetString("model"),
			Prompt:    viper.GetString("description-prompt"),
			MaxTokens: viper.GetInt("max-openai-tokens"),
		},
		Overlay: types.OverlayConfig{
			FontSize: viper.GetInt("font-size"),
		},
	}

	// Fail fast on bad arguments, before the input file is touched.
	if err := imagefilter.Validate(opts.Filter); err != nil {
		return err
	}
	if !opts.Filter.Enabled() && !opts.Describe.Enabled {
		fmt.Fprintln(os.Stderr, "warning: no filter or --describe selected; images will be re-encoded unchanged")
	}

	var captioner describe.Captioner
	if opts.Describe.Enabled {
		key := secrets.OpenAIKey(viper.GetString("openai-key"), os.Getenv("OPENAI_API_KEY"), loadedSecrets)
		if key == "" {
			return fmt.Errorf("%w: --describe requires an OpenAI key (--openai-key, PDFMASK_OPENAI_KEY, OPENAI_API_KEY, or .secrets/%s)",
				imagefilter.ErrValidation, secrets.OpenAIKeyFile)
		}
		opts.Describe.APIKey = key
		captioner = describe.NewOpenAICaptioner(opts.Describe)
	}

	logger := zap.NewNop()
	if viper.GetBool("verbose") {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		logger = dev
		defer logger.Sync()
	}

	_, err := pipeline.Run(context.Background(), opts, captioner, logger, os.Stdout)
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
