// ============================================================================
// speller CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Cobra command tree for building archives and querying them
//
// Command Structure:
//   speller                        # Root command
//   ├── build                      # Build an archive from a word list
//   ├── info                       # Print archive metadata as YAML
//   ├── check                      # Report misspelled words in a text
//   ├── suggest                    # Suggest corrections for words
//   ├── tokenize                   # Print the typed tokens of a text
//   ├── serve                      # Run the HTTP API
//   ├── try                        # Interactive banner, line mode off a terminal
//   ├── --config, -c              # YAML config file (optional)
//   └── --archive, -a             # Archive path, overrides the config
//
// Configuration:
//   See internal/config. Environment variables override the file, and the
//   --archive flag overrides both.
//
// Examples:
//   ./speller build -o en.zhfst --locale en words.txt
//   ./speller suggest -a en.zhfst --n-best 5 teh
//   echo "Teh cat" | ./speller check -a en.zhfst
//   ./speller serve -c speller.yaml
//
// ============================================================================

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"speller/internal/archive"
	"speller/internal/config"
	"speller/internal/corrector"
	"speller/internal/metrics"
	"speller/internal/server"
	"speller/internal/speller"
	"speller/internal/tokenizer"
	"speller/internal/userdict"
	"speller/pkg/options"
)

type rootFlags struct {
	configFile string
	archive    string
}

func BuildCLI() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:   "speller",
		Short: "speller: weighted spelling suggestions from zhfst archives",
		Long: `speller loads a spelling archive (an acceptor plus an error model) and
answers correctness and suggestion queries:
- best-first weighted suggestion search
- Unicode word tokenizer
- user dictionary backed by Redis
- HTTP API with Prometheus metrics`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&flags.archive, "archive", "a", "", "archive path (overrides config)")

	rootCmd.AddCommand(buildBuildCommand())
	rootCmd.AddCommand(buildInfoCommand(flags))
	rootCmd.AddCommand(buildCheckCommand(flags))
	rootCmd.AddCommand(buildSuggestCommand(flags))
	rootCmd.AddCommand(buildTokenizeCommand())
	rootCmd.AddCommand(buildServeCommand(flags))
	rootCmd.AddCommand(buildTryCommand(flags))

	return rootCmd
}

func (f *rootFlags) load() (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if f.archive != "" {
		cfg.Archive = f.archive
	}
	if cfg.Archive == "" {
		return nil, fmt.Errorf("archive path is required (use --archive or set archive in the config)")
	}
	return cfg, nil
}

// session is what the query commands share: a loaded speller and its logger.
type session struct {
	cfg *config.Config
	log *zap.Logger
	sp  *speller.Speller
}

func (f *rootFlags) open() (*session, error) {
	cfg, err := f.load()
	if err != nil {
		return nil, err
	}
	log, err := cfg.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	archive.SetLogger(log)
	sp, err := speller.Open(cfg.Archive, cfg.SpellerOptions(log)...)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return &session{cfg: cfg, log: log, sp: sp}, nil
}

func (s *session) Close() {
	s.sp.Close()
	s.log.Sync()
}

// userDict picks the Redis store when an address is configured.
func (s *session) userDict() (userdict.Store, func()) {
	if s.cfg.Redis.Addr == "" {
		return userdict.NewMemory(), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     s.cfg.Redis.Addr,
		Password: s.cfg.Redis.Password,
		DB:       s.cfg.Redis.DB,
	})
	return userdict.NewRedis(client, s.sp.Locale()), func() { client.Close() }
}

// textArgs joins args, or reads all of in when there are none.
func textArgs(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}

// =====================
// build
// =====================

func buildBuildCommand() *cobra.Command {
	var (
		output   string
		meta     archive.Metadata
		language string
	)

	cmd := &cobra.Command{
		Use:   "build [wordlist]",
		Short: "Build an archive from a word list",
		Long:  "Read \"word\" or \"word<TAB>weight\" lines (stdin when no file is given) and write a zhfst archive.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open word list: %w", err)
				}
				defer f.Close()
				in = f
			}
			words, err := archive.ParseWordList(in)
			if err != nil {
				return err
			}
			if language != "" {
				meta.Title = map[string]string{meta.Locale: language}
			}

			out, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create archive: %w", err)
			}
			if err := archive.Build(out, words, meta); err != nil {
				out.Close()
				os.Remove(output)
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d words)\n", output, len(words))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "archive file to write")
	cmd.Flags().StringVar(&meta.Locale, "locale", "", "BCP 47 locale of the archive")
	cmd.Flags().StringVar(&language, "title", "", "human readable title, stored under the locale")
	cmd.Flags().StringVar(&meta.Description, "description", "", "archive description")
	cmd.Flags().StringVar(&meta.Version, "version-tag", "", "archive version")
	cmd.Flags().StringVar(&meta.Producer, "producer", "", "archive producer")
	cmd.Flags().StringVar(&meta.Keyboard, "keyboard", "qwerty", "keyboard layout for substitution costs")
	cmd.MarkFlagRequired("output")
	cmd.MarkFlagRequired("locale")

	return cmd
}

// =====================
// info
// =====================

func buildInfoCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print archive metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open()
			if err != nil {
				return err
			}
			defer s.Close()

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(s.sp.Archive().Metadata()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

// =====================
// check
// =====================

func buildCheckCommand(flags *rootFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check [text...]",
		Short: "Report misspelled words in a text",
		Long:  "Check the words of the arguments, or of stdin when none are given, and print each misspelling with suggestions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textArgs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			s, err := flags.open()
			if err != nil {
				return err
			}
			defer s.Close()
			dict, closeDict := s.userDict()
			defer closeDict()

			sc := corrector.NewSpellCorrector(s.cfg.CorrectorConfig(), s.sp, dict, s.log)
			res, err := sc.CheckText(cmd.Context(), text)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(res)
			}
			for _, m := range res.Misspellings {
				fmt.Fprintf(out, "%d:%d\t%s\t%s\n", m.Start, m.End, m.Word, strings.Join(m.Suggestions, ", "))
			}
			fmt.Fprintf(out, "%d words, %d misspelled\n", res.Words, len(res.Misspellings))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

// =====================
// suggest
// =====================

func buildSuggestCommand(flags *rootFlags) *cobra.Command {
	var (
		nBest     int
		maxWeight float64
		beam      float64
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "suggest <word>...",
		Short: "Suggest corrections for words",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open()
			if err != nil {
				return err
			}
			defer s.Close()

			var opts []options.Options
			if cmd.Flags().Changed("n-best") {
				opts = append(opts, options.WithNBest(nBest))
			}
			if cmd.Flags().Changed("max-weight") {
				opts = append(opts, options.WithWeightLimit(float32(maxWeight)))
			}
			if cmd.Flags().Changed("beam") {
				opts = append(opts, options.WithBeam(float32(beam)))
			}

			out := cmd.OutOrStdout()
			for _, word := range args {
				if asJSON {
					js, err := s.sp.SuggestJSON(word, opts...)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s\n", js)
					continue
				}
				mark := "incorrect"
				if s.sp.IsCorrect(word) {
					mark = "correct"
				}
				fmt.Fprintf(out, "%s: %s\n", word, mark)
				for _, sug := range s.sp.Suggest(word, opts...) {
					fmt.Fprintf(out, "  %s\t%g\n", sug.Value, sug.Weight)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&nBest, "n-best", "n", 0, "maximum number of suggestions (0 = no cap)")
	cmd.Flags().Float64Var(&maxWeight, "max-weight", math.Inf(1), "drop suggestions heavier than this")
	cmd.Flags().Float64Var(&beam, "beam", math.Inf(1), "allowed weight over the best suggestion")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print suggestions as JSON")
	return cmd
}

// =====================
// tokenize
// =====================

func buildTokenizeCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "tokenize [text...]",
		Short: "Print the tokens of a text",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := textArgs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			cur := tokenizer.New(text)
			for tok, ok := cur.Next(); ok; tok, ok = cur.Next() {
				if !all && tok.Type == tokenizer.Whitespace {
					continue
				}
				fmt.Fprintf(out, "%d\t%d\t%s\t%q\n", tok.Start, tok.End, tok.Type, tok.Value)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include whitespace tokens")
	return cmd
}

// =====================
// serve
// =====================

func buildServeCommand(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open()
			if err != nil {
				return err
			}
			defer s.Close()
			if addr != "" {
				s.cfg.HTTP.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, s)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func serve(ctx context.Context, s *session) error {
	dict, closeDict := s.userDict()
	defer closeDict()

	opts := []server.Option{server.WithLogger(s.log)}
	if s.cfg.Metrics.Enabled {
		opts = append(opts, server.WithMetrics(metrics.NewCollector(prometheus.NewRegistry()), s.cfg.Metrics.Path))
	}
	sc := corrector.NewSpellCorrector(s.cfg.CorrectorConfig(), s.sp, dict, s.log)
	s.log.Info("serving archive",
		zap.String("archive", s.cfg.Archive),
		zap.String("locale", s.sp.Locale()),
		zap.Bool("redis", s.cfg.Redis.Addr != ""))
	return server.New(sc, opts...).ListenAndServe(ctx, s.cfg.HTTP.Addr)
}

// =====================
// try
// =====================

func buildTryCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "try",
		Short: "Type words and watch the suggestion banner",
		Long:  "Interactive banner on a terminal. When stdin is not a terminal each line is checked and printed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.open()
			if err != nil {
				return err
			}
			defer s.Close()
			dict, closeDict := s.userDict()
			defer closeDict()

			sc := corrector.NewSpellCorrector(s.cfg.CorrectorConfig(), s.sp, dict, s.log)
			in := cmd.InOrStdin()
			if isTerminal(in) {
				return runInteractive(cmd.Context(), sc)
			}
			return runLines(cmd.Context(), sc, in, cmd.OutOrStdout())
		},
	}
}

// runLines prints the banner for the last word of each line, then the
// misspellings of the whole line.
func runLines(ctx context.Context, sc *corrector.SpellCorrector, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		items, err := sc.Banner(ctx, lastWord(line))
		if err != nil {
			return err
		}
		titles := make([]string, len(items))
		for i, it := range items {
			titles[i] = it.Title
		}
		fmt.Fprintf(out, "[%s]\n", strings.Join(titles, " | "))

		res, err := sc.CheckText(ctx, line)
		if err != nil {
			return err
		}
		for _, m := range res.Misspellings {
			fmt.Fprintf(out, "  %s -> %s\n", m.Word, strings.Join(m.Suggestions, ", "))
		}
	}
	return scanner.Err()
}

// lastWord is the final word token of text, or "" when text ends without one.
func lastWord(text string) string {
	toks := tokenizer.All(text)
	if len(toks) == 0 {
		return ""
	}
	if last := toks[len(toks)-1]; last.Type == tokenizer.Word {
		return last.Value
	}
	return ""
}
