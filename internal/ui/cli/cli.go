package cli

import "flag"

const versionString = "0.2.0"
const defaultConfigPath = "./data/config/loom.toml"

type cliOptions struct {
	configPath    string
	once          bool
	check         bool
	ui            bool
	history       bool
	since         string
	historyWindow string
	historyTSV    string
	historyJSON   string
	queryModules  bool
	queryFilter   string
	queryModule   string
	queryTrace    string
	queryCQL      string
	queryLimit    int
	verbose       bool
	version       bool
	args          []string
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("loom", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.BoolVar(&opts.once, "once", false, "Run a single build and exit")
	fs.BoolVar(&opts.check, "check", false, "Run a single build and exit non-zero when it reports errors")
	fs.BoolVar(&opts.ui, "ui", false, "Enable terminal UI mode")
	fs.BoolVar(&opts.history, "history", false, "Print a build history trend report and exit (requires db.enabled)")
	fs.StringVar(&opts.since, "since", "", "Include builds at/after this timestamp (RFC3339 or YYYY-MM-DD)")
	fs.StringVar(&opts.historyWindow, "history-window", "24h", "Moving-window duration for trend averages (requires --history)")
	fs.StringVar(&opts.historyTSV, "history-tsv", "", "Write trend report TSV to this path (requires --history)")
	fs.StringVar(&opts.historyJSON, "history-json", "", "Write trend report JSON to this path (requires --history)")
	fs.BoolVar(&opts.queryModules, "query-modules", false, "List repository modules and exit")
	fs.StringVar(&opts.queryFilter, "query-filter", "", "Optional substring filter for --query-modules")
	fs.StringVar(&opts.queryModule, "query-module", "", "Print module details and exit")
	fs.StringVar(&opts.queryTrace, "query-trace", "", "Print shortest import chain between two modules (<from>:<to>) and exit")
	fs.StringVar(&opts.queryCQL, "query-cql", "", "Run a module query (SELECT modules WHERE ...) and exit")
	fs.IntVar(&opts.queryLimit, "query-limit", 0, "Optional limit/depth control for query modes")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}
