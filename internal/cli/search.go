package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/slipdesk/internal/activity"
	"github.com/roach88/slipdesk/internal/model"
	"github.com/roach88/slipdesk/internal/search"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Limit  int
	Offset int
	Sort   string
	Live   bool
}

// SearchRow is one printed search result.
type SearchRow struct {
	Filename string `json:"filename"`
	Nombre   string `json:"nombre,omitempty"`
	Fecha    string `json:"fecha,omitempty"`
	Valor    string `json:"valor,omitempty"`
	Banco    string `json:"banco,omitempty"`
	Href     string `json:"href"`
}

// SearchView is the printed form of a search state.
type SearchView struct {
	Query   string      `json:"query"`
	Count   int         `json:"count"`
	Results []SearchRow `json:"results"`
	Error   string      `json:"error,omitempty"`
}

var countPrinter = message.NewPrinter(language.English)

func (v SearchView) String() string {
	var b strings.Builder
	if v.Error != "" {
		fmt.Fprintf(&b, "%q: error: %s", v.Query, v.Error)
		return b.String()
	}
	b.WriteString(countPrinter.Sprintf("%q: %d results", v.Query, v.Count))
	if len(v.Results) < v.Count {
		b.WriteString(countPrinter.Sprintf(" (showing %d)", len(v.Results)))
	}
	for _, r := range v.Results {
		fmt.Fprintf(&b, "\n  %s", r.Filename)
		var parts []string
		for _, p := range []string{r.Nombre, r.Fecha, r.Valor, r.Banco} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			fmt.Fprintf(&b, "  [%s]", strings.Join(parts, " | "))
		}
		fmt.Fprintf(&b, "\n    %s", r.Href)
	}
	return b.String()
}

func newSearchView(st search.State) SearchView {
	rows := make([]SearchRow, len(st.Results))
	for i, item := range st.Results {
		rows[i] = SearchRow{
			Filename: item.Filename,
			Nombre:   item.Parts.Nombre,
			Fecha:    item.Parts.Fecha,
			Valor:    item.Parts.Valor,
			Banco:    item.Parts.Banco,
			Href:     search.ResolveHref(item),
		}
	}
	return SearchView{Query: st.Query, Count: st.Count, Results: rows, Error: st.Error}
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search ingested evidence",
		Long: `Search ingested receipts by name, date, amount or bank.

With --live, each line read from stdin is treated as the current contents
of the search box: queries fire after the debounce window and only the
newest query's results are printed. At end of input the last line is run
once more without debounce.

Examples:
  slipdesk search ana
  slipdesk search --limit 20 --sort date "150.000"
  tail -f typed.txt | slipdesk search --live`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum results (default from config)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "results to skip")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort order (default from config)")
	cmd.Flags().BoolVar(&opts.Live, "live", false, "read incremental input from stdin")

	return cmd
}

func runSearch(cmd *cobra.Command, opts *SearchOptions, query string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return NewExitError(ExitCommandError, "--limit and --offset must not be negative")
	}

	params := model.SearchParams{Limit: opts.Config.Search.Limit, Offset: opts.Offset, Sort: opts.Config.Search.Sort}
	if cmd.Flags().Changed("limit") {
		params.Limit = opts.Limit
	}
	if cmd.Flags().Changed("sort") {
		params.Sort = opts.Sort
	}

	log := activity.New(activity.WithLogger(opts.Logger))
	engine := search.New(opts.client(),
		search.WithDebounce(opts.Config.Debounce()),
		search.WithMinLive(opts.Config.Search.MinLive),
		search.WithParams(params),
		search.WithActivity(log),
		search.WithLogger(opts.Logger),
	)
	defer engine.Close()

	if opts.Live {
		err := runLiveSearch(cmd, formatter, engine, opts.Config.Search.MinLive)
		formatter.Activity(log)
		return err
	}

	if strings.TrimSpace(query) == "" {
		return NewExitError(ExitCommandError, "a query is required (or use --live)")
	}
	st, err := engine.Submit(cmd.Context(), query)
	formatter.Activity(log)
	if err != nil {
		if st.Error != "" {
			return formatter.Fail(ExitFailure, "SEARCH_FAILED", st.Error, nil)
		}
		return WrapExitError(ExitCommandError, "search failed", err)
	}
	return formatter.Success(newSearchView(st))
}

// runLiveSearch feeds stdin lines to the engine and prints every applied
// state. Loading states are not printed.
func runLiveSearch(cmd *cobra.Command, f *OutputFormatter, engine *search.Engine, minLive int) error {
	var mu sync.Mutex
	engine.Subscribe(func(st search.State) {
		if st.Loading || st.Query == "" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if st.Error != "" {
			_ = f.Error("SEARCH_FAILED", st.Error, map[string]string{"query": st.Query})
			return
		}
		_ = f.Success(newSearchView(st))
	})

	var last string
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		last = scanner.Text()
		engine.Type(last)
	}
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}

	q := strings.TrimSpace(last)
	if utf8.RuneCountInString(q) < minLive {
		return nil
	}
	_, err := engine.Submit(cmd.Context(), q)
	if err != nil && !errors.Is(err, search.ErrSuperseded) {
		// The subscriber already printed the error state.
		return reported{NewExitError(ExitFailure, err.Error())}
	}
	return nil
}
