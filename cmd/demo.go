package cmd

import (
	"errors"
	"strings"

	clerrors "github.com/jmurray2011/recency/internal/errors"
	"github.com/jmurray2011/recency/internal/output"
	"github.com/jmurray2011/recency/internal/trace"
	"github.com/jmurray2011/recency/pkg/lru"

	"github.com/spf13/cobra"
)

// referenceScenario is the walkthrough run by "recency demo". At capacity 3,
// put 4 evicts 2 and put 5 evicts 3.
const referenceScenario = `# reference scenario
put 1 1
put 2 2
put 3 3
get 1
put 4 4
get 2
put 5 5
get 3
get 4
get 5
`

var demoCapacity int

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the reference LRU scenario step by step",
	Long: `Run a fixed sequence of puts and gets against a fresh cache and print the
outcome of every step, the evictions, and the final recency order.

With the default capacity of 3:
  put 1, put 2, put 3, get 1 -> 1
  put 4   evicts 2 (least recently used)
  get 2   -> absent
  put 5   evicts 3
  get 3   -> absent, get 4 -> 4, get 5 -> 5

Examples:
  recency demo
  recency demo --capacity 2
  recency demo -o json`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().IntVarP(&demoCapacity, "capacity", "c", 3, "Cache capacity")
}

func runDemo(cmd *cobra.Command, args []string) error {
	app := GetApp(cmd)

	format, err := output.ParseFormat(app.GetOutputFormat())
	if err != nil {
		return err
	}

	ops, err := trace.Parse(strings.NewReader(referenceScenario))
	if err != nil {
		return err
	}

	result, err := trace.Replay(ops, demoCapacity, trace.Options{Source: "demo", RecordSteps: true})
	if err != nil {
		if errors.Is(err, lru.ErrInvalidConfiguration) {
			return clerrors.InvalidCapacityError(demoCapacity, err)
		}
		return err
	}

	formatter := output.NewFormatter(string(format), app.Out, rendererOptions(app)...)
	if format != output.FormatText {
		return formatter.FormatResults([]*trace.Result{result})
	}

	app.Render.Status("Replaying %d ops at capacity %d", len(ops), demoCapacity)
	if err := formatter.FormatSteps(result.Steps); err != nil {
		return err
	}
	app.Render.Newline()
	return formatter.FormatResults([]*trace.Result{result})
}
