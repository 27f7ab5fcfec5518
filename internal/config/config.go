// Package config loads critique's yaml configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type (
	Config struct {
		View     ViewConfig     `yaml:"view"`
		Loader   LoaderConfig   `yaml:"loader"`
		Comments CommentsConfig `yaml:"comments"`
		Log      LogConfig      `yaml:"log"`
		Theme    ThemeConfig    `yaml:"theme"`
	}
	ViewConfig struct {
		Mode               string `yaml:"mode"`
		LineHeight         int    `yaml:"line_height"`
		HeaderHeight       int    `yaml:"header_height"`
		PlaceholderHeight  int    `yaml:"placeholder_height"`
		Overscan           int    `yaml:"overscan"`
		SmallDiffThreshold int    `yaml:"small_diff_threshold"`
		ContextLines       int    `yaml:"context_lines"`
	}
	LoaderConfig struct {
		LargeDiffLines int `yaml:"large_diff_lines"`
		PageSize       int `yaml:"page_size"`
		Proximity      int `yaml:"proximity"`
	}
	CommentsConfig struct {
		MutationTimeout string `yaml:"mutation_timeout"`
		Author          string `yaml:"author"`
	}
	LogConfig struct {
		File  string `yaml:"file"`
		Level string `yaml:"level"`
	}
	ThemeConfig struct {
		Name        string `yaml:"name"`
		SyntaxStyle string `yaml:"syntax_style"`
	}
)

type (
	Parsed struct {
		View     ViewParsed
		Loader   LoaderConfig
		Comments CommentsParsed
		Log      LogParsed
		Theme    ThemeConfig
	}
	ViewParsed struct {
		Split              bool
		LineHeight         int
		HeaderHeight       int
		PlaceholderHeight  int
		Overscan           int
		SmallDiffThreshold int
		ContextLines       int
	}
	CommentsParsed struct {
		// MutationTimeout is zero when mutations run without a deadline.
		MutationTimeout time.Duration
		Author          string
	}
	LogParsed struct {
		File  string
		Level zerolog.Level
	}
)

// Default returns the parsed default configuration.
func Default() Parsed {
	p, err := parse(defaultConfig())
	if err != nil {
		panic(err)
	}
	return p
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file is created with the defaults. Keys absent from the
// file keep their default values.
func Load(path string) (Parsed, error) {
	c, err := load(path)
	if err != nil {
		return Default(), err
	}
	return parse(c)
}

func parse(c Config) (Parsed, error) {
	var split bool
	switch c.View.Mode {
	case "", "unified":
	case "split":
		split = true
	default:
		return Parsed{}, fmt.Errorf("invalid view mode %q", c.View.Mode)
	}

	var timeout time.Duration
	if c.Comments.MutationTimeout != "" {
		d, err := time.ParseDuration(c.Comments.MutationTimeout)
		if err != nil {
			return Parsed{}, fmt.Errorf("failed to parse comments mutation timeout: %w", err)
		}
		if d < 0 {
			return Parsed{}, fmt.Errorf("negative comments mutation timeout %s", d)
		}
		timeout = d
	}

	level := zerolog.InfoLevel
	if c.Log.Level != "" {
		l, err := zerolog.ParseLevel(c.Log.Level)
		if err != nil {
			return Parsed{}, fmt.Errorf("failed to parse log level: %w", err)
		}
		level = l
	}

	switch c.Theme.Name {
	case "", "dark", "light":
	default:
		return Parsed{}, fmt.Errorf("unknown theme %q", c.Theme.Name)
	}

	if c.Loader.PageSize <= 0 {
		return Parsed{}, errors.New("loader page size must be positive")
	}
	if c.View.LineHeight <= 0 {
		return Parsed{}, errors.New("view line height must be positive")
	}

	return Parsed{
		View: ViewParsed{
			Split:              split,
			LineHeight:         c.View.LineHeight,
			HeaderHeight:       c.View.HeaderHeight,
			PlaceholderHeight:  c.View.PlaceholderHeight,
			Overscan:           c.View.Overscan,
			SmallDiffThreshold: c.View.SmallDiffThreshold,
			ContextLines:       c.View.ContextLines,
		},
		Loader: c.Loader,
		Comments: CommentsParsed{
			MutationTimeout: timeout,
			Author:          c.Comments.Author,
		},
		Log:   LogParsed{File: c.Log.File, Level: level},
		Theme: c.Theme,
	}, nil
}

func load(path string) (Config, error) {
	if path == "" {
		dir, err := getConfigDir()
		if err != nil {
			return defaultConfig(), fmt.Errorf("failed to get config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		c := defaultConfig()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return c, fmt.Errorf("failed to create config dir: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return c, fmt.Errorf("failed to create config file: %w", err)
		}
		defer f.Close()
		ye := yaml.NewEncoder(f)
		ye.SetIndent(2)
		if err := ye.Encode(c); err != nil {
			return c, fmt.Errorf("failed to encode config: %w", err)
		}
		return c, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return defaultConfig(), fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	c := defaultConfig()
	if err := yaml.NewDecoder(f).Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return defaultConfig(), fmt.Errorf("failed to decode config: %w", err)
	}
	return c, nil
}

func getConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "critique"), nil
}

func defaultConfig() Config {
	return Config{
		View: ViewConfig{
			Mode:               "unified",
			LineHeight:         1,
			HeaderHeight:       1,
			PlaceholderHeight:  3,
			Overscan:           20,
			SmallDiffThreshold: 2000,
			ContextLines:       5,
		},
		Loader: LoaderConfig{
			LargeDiffLines: 1500,
			PageSize:       20,
			Proximity:      1,
		},
		Comments: CommentsConfig{
			Author: "you",
		},
		Log: LogConfig{
			Level: "info",
		},
		Theme: ThemeConfig{
			Name:        "dark",
			SyntaxStyle: "monokai",
		},
	}
}
