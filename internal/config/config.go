package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// MaxDictionarySize is the largest dictionary the 16-bit bigram index can address.
const MaxDictionarySize = 1 << 16

type Config struct {
	Paths      PathsConfig      `mapstructure:"paths"`
	Dictionary DictionaryConfig `mapstructure:"dictionary"`
	Sequence   SequenceConfig   `mapstructure:"sequence"`
	LSTM       LSTMConfig       `mapstructure:"lstm"`
	LogLevel   string           `mapstructure:"log_level"`
}

type PathsConfig struct {
	Unigrams  string `mapstructure:"unigrams"`
	Bigrams   string `mapstructure:"bigrams"`
	Corpus    string `mapstructure:"corpus"`
	Weights   string `mapstructure:"weights"`
	VocabJSON string `mapstructure:"vocab_json"`
	OutDir    string `mapstructure:"out_dir"`
}

// DictionaryConfig bounds the n-gram vocabulary and bigram table.
type DictionaryConfig struct {
	MaxSize            int    `mapstructure:"max_size"`
	MinFrequency       uint64 `mapstructure:"min_frequency"`
	MaxWordLen         int    `mapstructure:"max_word_len"`
	MaxBigrams         int    `mapstructure:"max_bigrams"`
	MinBigramFrequency uint64 `mapstructure:"min_bigram_frequency"`
}

// SequenceConfig bounds the recurrent model vocabulary and its training windows.
type SequenceConfig struct {
	MaxSize      int    `mapstructure:"max_size"`
	MinFrequency uint64 `mapstructure:"min_frequency"`
	Length       int    `mapstructure:"length"`
	TextColumn   string `mapstructure:"text_column"`
}

type LSTMConfig struct {
	EmbeddingDim int    `mapstructure:"embedding_dim"`
	HiddenSize   int    `mapstructure:"hidden_size"`
	TensorPrefix string `mapstructure:"tensor_prefix"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			Unigrams:  "data/unigrams.tsv",
			Bigrams:   "data/bigrams.tsv",
			Corpus:    "data/corpus",
			Weights:   "models/lstm.safetensors",
			VocabJSON: "",
			OutDir:    "assets",
		},
		Dictionary: DictionaryConfig{
			MaxSize:            50000,
			MinFrequency:       1,
			MaxWordLen:         20,
			MaxBigrams:         200000,
			MinBigramFrequency: 1,
		},
		Sequence: SequenceConfig{
			MaxSize:      20000,
			MinFrequency: 5,
			Length:       5,
			TextColumn:   "",
		},
		LSTM: LSTMConfig{
			EmbeddingDim: 256,
			HiddenSize:   256,
			TensorPrefix: "",
		},
		LogLevel: "info",
	}
}

// binding pairs a config key with its command-line flag.
type binding struct {
	key  string
	flag string
}

var bindings = []binding{
	{"paths.unigrams", "unigrams"},
	{"paths.bigrams", "bigrams"},
	{"paths.corpus", "corpus"},
	{"paths.weights", "weights"},
	{"paths.vocab_json", "vocab-json"},
	{"paths.out_dir", "out-dir"},
	{"dictionary.max_size", "dictionary-max-size"},
	{"dictionary.min_frequency", "dictionary-min-frequency"},
	{"dictionary.max_word_len", "max-word-len"},
	{"dictionary.max_bigrams", "max-bigrams"},
	{"dictionary.min_bigram_frequency", "min-bigram-frequency"},
	{"sequence.max_size", "sequence-max-size"},
	{"sequence.min_frequency", "sequence-min-frequency"},
	{"sequence.length", "sequence-length"},
	{"sequence.text_column", "text-column"},
	{"lstm.embedding_dim", "embedding-dim"},
	{"lstm.hidden_size", "hidden-size"},
	{"lstm.tensor_prefix", "tensor-prefix"},
	{"log_level", "log-level"},
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("unigrams", defaults.Paths.Unigrams, "Unigram count file (word<TAB>count)")
	fs.String("bigrams", defaults.Paths.Bigrams, "Bigram count file (w1 w2<TAB>count)")
	fs.String("corpus", defaults.Paths.Corpus, "Training text file or directory (.txt, .csv, .json, .jsonl)")
	fs.String("weights", defaults.Paths.Weights, "Trained recurrent model weights (.safetensors)")
	fs.String("vocab-json", defaults.Paths.VocabJSON, "word_indices.json matching the trained weights")
	fs.String("out-dir", defaults.Paths.OutDir, "Directory that receives the compiled assets")
	fs.Int("dictionary-max-size", defaults.Dictionary.MaxSize, "Maximum n-gram vocabulary size")
	fs.Uint64("dictionary-min-frequency", defaults.Dictionary.MinFrequency, "Minimum unigram count kept in the dictionary")
	fs.Int("max-word-len", defaults.Dictionary.MaxWordLen, "Longest unigram accepted, in characters")
	fs.Int("max-bigrams", defaults.Dictionary.MaxBigrams, "Maximum number of bigrams kept")
	fs.Uint64("min-bigram-frequency", defaults.Dictionary.MinBigramFrequency, "Minimum bigram count kept")
	fs.Int("sequence-max-size", defaults.Sequence.MaxSize, "Maximum recurrent model vocabulary size, sentinels included")
	fs.Uint64("sequence-min-frequency", defaults.Sequence.MinFrequency, "Minimum token count kept in the sequence vocabulary")
	fs.Int("sequence-length", defaults.Sequence.Length, "Context words per training sequence")
	fs.String("text-column", defaults.Sequence.TextColumn, "CSV column or JSON field holding training text")
	fs.Int("embedding-dim", defaults.LSTM.EmbeddingDim, "Embedding width of the trained model")
	fs.Int("hidden-size", defaults.LSTM.HiddenSize, "Hidden state width of the trained model")
	fs.String("tensor-prefix", defaults.LSTM.TensorPrefix, "Prefix stripped from tensor names in the weights file")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("LMASSETS")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("lmassets")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// Validate rejects settings the asset formats cannot represent.
func (c Config) Validate() error {
	var errs []error

	if c.Dictionary.MaxSize <= 0 || c.Dictionary.MaxSize > MaxDictionarySize {
		errs = append(errs, fmt.Errorf("dictionary.max_size %d outside [1, %d]", c.Dictionary.MaxSize, MaxDictionarySize))
	}

	if c.Dictionary.MaxWordLen <= 0 {
		errs = append(errs, fmt.Errorf("dictionary.max_word_len must be positive, got %d", c.Dictionary.MaxWordLen))
	}

	if c.Dictionary.MaxBigrams < 0 {
		errs = append(errs, fmt.Errorf("dictionary.max_bigrams must not be negative, got %d", c.Dictionary.MaxBigrams))
	}

	if c.Sequence.MaxSize <= 2 {
		errs = append(errs, fmt.Errorf("sequence.max_size must leave room beyond <PAD> and <UNK>, got %d", c.Sequence.MaxSize))
	}

	if c.Sequence.Length <= 0 {
		errs = append(errs, fmt.Errorf("sequence.length must be positive, got %d", c.Sequence.Length))
	}

	if c.LSTM.EmbeddingDim <= 0 || c.LSTM.HiddenSize <= 0 {
		errs = append(errs, fmt.Errorf("lstm dims must be positive, got embedding_dim=%d hidden_size=%d",
			c.LSTM.EmbeddingDim, c.LSTM.HiddenSize))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (expected debug|info|warn|error)", s)
	}
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.unigrams", c.Paths.Unigrams)
	v.SetDefault("paths.bigrams", c.Paths.Bigrams)
	v.SetDefault("paths.corpus", c.Paths.Corpus)
	v.SetDefault("paths.weights", c.Paths.Weights)
	v.SetDefault("paths.vocab_json", c.Paths.VocabJSON)
	v.SetDefault("paths.out_dir", c.Paths.OutDir)
	v.SetDefault("dictionary.max_size", c.Dictionary.MaxSize)
	v.SetDefault("dictionary.min_frequency", c.Dictionary.MinFrequency)
	v.SetDefault("dictionary.max_word_len", c.Dictionary.MaxWordLen)
	v.SetDefault("dictionary.max_bigrams", c.Dictionary.MaxBigrams)
	v.SetDefault("dictionary.min_bigram_frequency", c.Dictionary.MinBigramFrequency)
	v.SetDefault("sequence.max_size", c.Sequence.MaxSize)
	v.SetDefault("sequence.min_frequency", c.Sequence.MinFrequency)
	v.SetDefault("sequence.length", c.Sequence.Length)
	v.SetDefault("sequence.text_column", c.Sequence.TextColumn)
	v.SetDefault("lstm.embedding_dim", c.LSTM.EmbeddingDim)
	v.SetDefault("lstm.hidden_size", c.LSTM.HiddenSize)
	v.SetDefault("lstm.tensor_prefix", c.LSTM.TensorPrefix)
	v.SetDefault("log_level", c.LogLevel)
}

// bindFlags binds each registered flag to its nested key so config file
// values still apply when the flag is left unset.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, b := range bindings {
		f := fs.Lookup(b.flag)
		if f == nil {
			continue
		}

		if err := v.BindPFlag(b.key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", b.flag, err)
		}
	}

	return nil
}
