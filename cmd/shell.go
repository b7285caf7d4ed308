package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	clerrors "github.com/jmurray2011/recency/internal/errors"
	"github.com/jmurray2011/recency/internal/trace"
	"github.com/jmurray2011/recency/internal/ui"
	"github.com/jmurray2011/recency/pkg/lru"

	"github.com/spf13/cobra"
)

var shellCapacity int

var shellVerbs = []string{"access", "exit", "get", "help", "keys", "len", "peek", "put", "quit", "stats"}

const shellHelp = `Commands:
  get <key>            Look up key (refreshes recency)
  put <key> <value>    Insert or update key
  access <key>         get, and on a miss put key=key
  peek <key>           Look up key without refreshing recency
  keys                 List keys, most to least recently used
  len                  Show entry count and capacity
  stats                Show hit/miss/eviction counters
  help                 Show this help
  quit                 Leave the shell`

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Drive a cache interactively",
	Long: `Start a line-oriented session on a single cache. Commands are read from
standard input one per line, so a session can also be scripted:

  printf 'put a 1\nput b 2\nget a\nkeys\n' | recency shell -c 2

` + shellHelp,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().IntVarP(&shellCapacity, "capacity", "c", DefaultCapacity, "Cache capacity (default from config)")
}

func runShell(cmd *cobra.Command, args []string) error {
	app := GetApp(cmd)
	capacity := app.GetCapacity(cmd, shellCapacity)

	s, err := newSession(capacity, app.Render, app.Out)
	if err != nil {
		return err
	}

	app.Render.Status("LRU cache with capacity %d. Type 'help' for commands.", capacity)
	return s.run(app.Stdin, !app.Config.Quiet)
}

// session is one interactive cache.
type session struct {
	cache   *lru.Cache[string, string]
	evicted string
	render  *ui.Renderer
	out     io.Writer
}

func newSession(capacity int, render *ui.Renderer, out io.Writer) (*session, error) {
	s := &session{render: render, out: out}

	cache, err := lru.New(capacity, lru.WithEvictCallback(func(key, _ string) {
		s.evicted = key
	}))
	if err != nil {
		return nil, clerrors.InvalidCapacityError(capacity, err)
	}
	s.cache = cache
	return s, nil
}

// run executes commands from r until EOF or quit. Bad commands are
// reported and the session continues.
func (s *session) run(r io.Reader, prompt bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), trace.MaxScanTokenSize)

	lineNo := 0
	for {
		if prompt {
			fmt.Fprint(s.out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		lineNo++

		done, err := s.exec(scanner.Text(), lineNo)
		if err != nil {
			s.render.Error("%v", err)
		}
		if done {
			return nil
		}
	}
	if prompt {
		fmt.Fprintln(s.out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

// exec runs one command line. It reports done when the session should end.
func (s *session) exec(line string, lineNo int) (done bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return false, nil
	}
	verb := strings.ToLower(fields[0])

	switch verb {
	case "quit", "exit":
		return true, nil

	case "help":
		s.render.Info(shellHelp)
		return false, nil

	case "keys":
		s.render.Recency(s.cache.Keys())
		return false, nil

	case "len":
		s.render.Info("%d/%d", s.cache.Len(), s.cache.Cap())
		return false, nil

	case "stats":
		s.printStats()
		return false, nil

	case "peek":
		if len(fields) != 2 {
			return false, errors.New("peek takes exactly one key")
		}
		if v, ok := s.cache.Peek(fields[1]); ok {
			s.render.Info("%s", v)
		} else {
			s.render.Info("(absent)")
		}
		return false, nil

	case string(trace.KindGet), string(trace.KindPut), string(trace.KindAccess):
		op, _, err := trace.ParseLine(line, lineNo)
		if err != nil {
			return false, err
		}
		s.apply(op)
		return false, nil

	default:
		return false, clerrors.UnknownOpError(lineNo, fields[0], shellVerbs)
	}
}

func (s *session) apply(op trace.Op) {
	s.evicted = ""

	switch op.Kind {
	case trace.KindGet:
		if v, ok := s.cache.Get(op.Key); ok {
			s.render.Info("%s %s", s.render.Outcome(true), v)
		} else {
			s.render.Info("%s (absent)", s.render.Outcome(false))
		}

	case trace.KindPut:
		s.cache.Put(op.Key, op.Value)
		s.printStored()

	case trace.KindAccess:
		if v, ok := s.cache.Get(op.Key); ok {
			s.render.Info("%s %s", s.render.Outcome(true), v)
			return
		}
		s.cache.Put(op.Key, op.Key)
		s.render.Info("%s", s.render.Outcome(false))
		s.printStored()
	}
}

func (s *session) printStored() {
	if s.evicted != "" {
		s.render.Info("OK (%s)", s.render.Evicted(s.evicted))
		return
	}
	s.render.Info("OK")
}

func (s *session) printStats() {
	st := s.cache.Stats()
	s.render.KeyValue("Entries", fmt.Sprintf("%d/%d", s.cache.Len(), s.cache.Cap()))
	s.render.KeyValue("Hits", strconv.FormatUint(st.Hits, 10))
	s.render.KeyValue("Misses", strconv.FormatUint(st.Misses, 10))
	s.render.KeyValue("Inserts", strconv.FormatUint(st.Inserts, 10))
	s.render.KeyValue("Updates", strconv.FormatUint(st.Updates, 10))
	s.render.KeyValue("Evictions", strconv.FormatUint(st.Evictions, 10))
	s.render.KeyValue("Hit ratio", fmt.Sprintf("%.1f%%", st.HitRatio()*100))
}
