package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/domdfcoding/cp2077-extractor/internal/audio"
	"github.com/domdfcoding/cp2077-extractor/internal/config"
	"github.com/domdfcoding/cp2077-extractor/internal/logging"
	"github.com/domdfcoding/cp2077-extractor/internal/parser"
	"github.com/domdfcoding/cp2077-extractor/internal/red"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cp2077-extractor",
	Short: "Parse CR2W files to JSON and extract texture/audio buffers",
	RunE:  extract,
}

var transcodeCmd = &cobra.Command{
	Use:   "transcode",
	Short: "Transcode extracted .wem audio to tagged mp3 files",
	RunE:  transcode,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")

	// i/o
	rootCmd.Flags().StringP("input", "i", "", "path to .cr2w file to parse (required)")
	rootCmd.Flags().StringP("output", "o", "", "path to output JSON file")
	rootCmd.Flags().StringP("buffers-output", "b", "", "directory to extract raw buffer blobs to")
	rootCmd.MarkFlagRequired("input")

	// other opts
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-output-dir", "", "directory to write log files (if set, logs are written to both stdout and file)")
	rootCmd.Flags().Bool("dry-run", false, "parse without writing output (validation)")

	// transcode pipeline
	transcodeCmd.Flags().String("wem-dir", "", "directory containing extracted .wem files (required)")
	transcodeCmd.Flags().String("mp3-dir", "", "directory to place finished mp3 files (required)")
	transcodeCmd.Flags().String("tracks", "", "path to JSON track manifest for ID3 tagging and pruning")
	transcodeCmd.Flags().Float64("min-duration", 60, "skip files shorter than this many seconds")
	transcodeCmd.Flags().Float64("max-duration", 600, "skip files longer than this many seconds")
	transcodeCmd.MarkFlagRequired("wem-dir")
	transcodeCmd.MarkFlagRequired("mp3-dir")

	viper.BindPFlag("input", rootCmd.Flags().Lookup("input"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("buffers_dir", rootCmd.Flags().Lookup("buffers-output"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_output_dir", rootCmd.PersistentFlags().Lookup("log-output-dir"))
	viper.BindPFlag("dry_run", rootCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("wem_dir", transcodeCmd.Flags().Lookup("wem-dir"))
	viper.BindPFlag("mp3_dir", transcodeCmd.Flags().Lookup("mp3-dir"))
	viper.BindPFlag("tracks", transcodeCmd.Flags().Lookup("tracks"))
	viper.BindPFlag("min_duration", transcodeCmd.Flags().Lookup("min-duration"))
	viper.BindPFlag("max_duration", transcodeCmd.Flags().Lookup("max-duration"))

	rootCmd.AddCommand(transcodeCmd)
}

// initConfig reads in config file and environment variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "cp2077-extractor"))
		}
		viper.AddConfigPath("/etc/cp2077-extractor")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("CP2077_EXTRACTOR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func loadConfig() error {
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return logging.Setup(cfg.LogLevel, cfg.LogOutputDir)
}

type chunkDoc struct {
	Index     int       `json:"index"`
	ClassName string    `json:"class_name"`
	Value     red.Value `json:"value,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type outputDoc struct {
	Version uint32     `json:"version"`
	Imports []string   `json:"imports"`
	Chunks  []chunkDoc `json:"chunks"`
}

// extract runs the main command: parse the CR2W container, decode
// every export, and write the decoded trees as JSON
func extract(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger := slog.With("file", cfg.InputFile)
	logger.Info("parsing file")

	file, err := os.Open(cfg.InputFile)
	if err != nil {
		return fmt.Errorf("failed to open CR2W file: %w", err)
	}
	defer file.Close()

	reader := parser.NewReader(file, logger)
	info, err := reader.ReadFileInfo()
	if err != nil {
		return err
	}

	chunks, err := reader.ReadAllChunks()
	if err != nil {
		return err
	}
	buffers, err := reader.ReadAllBuffers()
	if err != nil {
		return err
	}

	session := red.NewSession(red.NewRegistry(), info, chunks, buffers, logger)
	results := session.DecodeAll()

	decoded := 0
	doc := outputDoc{Version: info.Header.Version, Imports: info.GetImports()}
	for _, res := range results {
		cd := chunkDoc{Index: res.Index, ClassName: res.ClassName, Value: res.Value}
		if res.Err != nil {
			cd.Error = res.Err.Error()
		} else {
			decoded++
		}
		doc.Chunks = append(doc.Chunks, cd)
	}

	logger.Info("decoded chunks", "ok", decoded, "failed", len(results)-decoded)

	if cfg.DryRun {
		return nil
	}

	if cfg.OutputFile != "" {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		if err := os.WriteFile(cfg.OutputFile, data, 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if cfg.BuffersOutputDir != "" {
		if err := os.MkdirAll(cfg.BuffersOutputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create buffers directory: %w", err)
		}
		for i, data := range buffers {
			name := filepath.Join(cfg.BuffersOutputDir, strconv.Itoa(i)+".buffer")
			if err := os.WriteFile(name, data, 0o644); err != nil {
				return fmt.Errorf("failed to write buffer %d: %w", i, err)
			}
		}
	}

	return nil
}

// transcode runs the audio pipeline over a directory of extracted
// .wem files
func transcode(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger := slog.With("wem_dir", cfg.WemDir)

	var manifest audio.Manifest
	var targets, all audio.IDSet
	if cfg.TracksManifest != "" {
		var err error
		manifest, err = audio.LoadManifest(cfg.TracksManifest)
		if err != nil {
			return err
		}
		targets, _, all, err = audio.PrepareIDs(manifest)
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(cfg.Mp3Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create mp3 directory: %w", err)
	}

	tc := audio.NewTranscoder(
		cfg.VgmstreamPath, cfg.FfmpegPath, cfg.FfprobePath,
		cfg.MinDuration, cfg.MaxDuration,
		logger,
	)

	entries, err := os.ReadDir(cfg.WemDir)
	if err != nil {
		return fmt.Errorf("failed to list wem directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".wem") {
			continue
		}

		stem := strings.TrimSuffix(entry.Name(), ".wem")
		id, err := strconv.Atoi(stem)
		if err != nil {
			logger.Debug("skipping non-numeric wem name", "name", entry.Name())
			continue
		}
		if manifest != nil && !all.Contains(id) {
			continue
		}

		wemPath := filepath.Join(cfg.WemDir, entry.Name())
		mp3Path := filepath.Join(cfg.Mp3Dir, stem+".mp3")

		skipped, err := tc.Transcode(wemPath, mp3Path)
		if err != nil {
			logger.Error("transcode failed", "wem", wemPath, "error", err)
			continue
		}
		if skipped {
			continue
		}

		if _, err := audio.SetIDFilename(cfg.Mp3Dir, mp3Path, id); err != nil {
			return err
		}
	}

	for station, tracks := range manifest {
		for _, track := range tracks {
			mp3Path := filepath.Join(cfg.Mp3Dir, strconv.Itoa(track.WemName)+".mp3")
			if _, err := os.Stat(mp3Path); err != nil {
				continue
			}
			if err := track.WriteID3(mp3Path, station); err != nil {
				logger.Error("tagging failed", "mp3", mp3Path, "error", err)
			}
		}
	}

	if targets != nil {
		if err := audio.RemoveExtraFiles(cfg.Mp3Dir, targets); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
