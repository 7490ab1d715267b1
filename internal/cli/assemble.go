package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"quiz-engine-service/internal/domain"
	"quiz-engine-service/internal/engine"
)

// questionFile is the YAML layout accepted by the assemble command.
type questionFile struct {
	Quiz struct {
		ID         string `yaml:"id"`
		Title      string `yaml:"title"`
		Difficulty string `yaml:"difficulty"`
		TimeLimit  *int   `yaml:"timeLimit"`
	} `yaml:"quiz"`
	Questions []domain.Question `yaml:"questions"`
}

type assembleOptions struct {
	file     string
	count    int
	mode     string
	seed     int64
	validate bool
}

// NewAssembleCmd previews an assembled quiz from a YAML question file.
func NewAssembleCmd() *cobra.Command {
	opts := assembleOptions{}
	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Assemble a quiz from a YAML question file and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			seeded := cmd.Flags().Changed("seed")
			return runAssemble(cmd.OutOrStdout(), opts, seeded)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "YAML file with a questions list")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "number of questions to sample (default: all)")
	cmd.Flags().StringVar(&opts.mode, "mode", string(domain.ModeStandard), "play mode")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "fixed seed for a reproducible ordering")
	cmd.Flags().BoolVar(&opts.validate, "validate", true, "reject questions whose answer is not among the options")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runAssemble(out io.Writer, opts assembleOptions, seeded bool) error {
	raw, err := os.ReadFile(opts.file)
	if err != nil {
		return err
	}
	var file questionFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse %s: %w", opts.file, err)
	}
	if opts.validate {
		for _, q := range file.Questions {
			if err := q.Validate(); err != nil {
				return fmt.Errorf("question %s: %w", q.ID, err)
			}
		}
	}

	count := opts.count
	if count == 0 {
		count = len(file.Questions)
	}
	meta := domain.QuizMeta{
		ID:         file.Quiz.ID,
		Title:      file.Quiz.Title,
		Difficulty: file.Quiz.Difficulty,
		TimeLimit:  file.Quiz.TimeLimit,
		Active:     true,
	}
	if meta.ID == "" {
		meta = engine.DynamicMeta(domain.ParseMode(opts.mode), nil, count)
	}

	var assemblerOpts []engine.AssemblerOption
	if seeded {
		seed := uint32(opts.seed)
		assemblerOpts = append(assemblerOpts, engine.WithSource(func() engine.Source { return engine.NewLCG(seed) }))
	}
	view, err := engine.NewAssembler(assemblerOpts...).Assemble(file.Questions, count, domain.Mode(opts.mode), meta)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
