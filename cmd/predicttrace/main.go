/*
Predicttrace loads a scenario file describing a small hand-built ATN and a
token stream, and walks adaptivePredict against it one decision at a time,
printing the alternative each decision predicts and, when tracing is on,
one line per ambiguity, full-context attempt, and context-sensitivity
event. It exists for grammar authors who hit an unexpected ambiguity or
context sensitivity report and want to reproduce it without standing up a
full generated parser.

Usage:

	predicttrace [flags]

The flags are:

	-s, --scenario FILE
		The scenario TOML file to load. Defaults to "scenario.toml" in the
		current directory.

	-c, --config FILE
		An optional pconfig TOML file overriding the default prediction
		mode, DFA cache size hint, and trace verbosity.

	-m, --mode MODE
		Override the configured prediction mode: "sll", "ll", or
		"ll_exact_ambig_detection".

	-i, --interactive
		Pause on a GNU readline prompt before each decision, instead of
		printing every decision's result at once. Also turns on tracing.

	--dump FILE
		After running, write every decision's DFA to FILE as a REZI-encoded
		snapshot.

	--load FILE
		Before running, warm-start the DFA cache from a previously dumped
		snapshot file.

	--stats
		Print each decision's interned state/edge counts after running.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/dekarrin/allstar/internal/dfacache"
	"github.com/dekarrin/allstar/internal/pconfig"
	"github.com/dekarrin/allstar/internal/pcontext"
	"github.com/dekarrin/allstar/internal/predictor"
	"github.com/dekarrin/allstar/internal/ptrace"
	"github.com/dekarrin/allstar/internal/tokenstream"
)

const (
	// ExitSuccess indicates a successful run.
	ExitSuccess = iota

	// ExitScenarioError indicates a problem loading the scenario or config
	// file.
	ExitScenarioError

	// ExitPredictError indicates adaptivePredict itself returned an error
	// (a NoViableAlternative for at least one decision run).
	ExitPredictError
)

var (
	returnCode int = ExitSuccess

	scenarioPath *string = pflag.StringP("scenario", "s", "scenario.toml", "Scenario TOML file describing the ATN and input tokens")
	configPath   *string = pflag.StringP("config", "c", "", "Optional pconfig TOML file overriding prediction-mode defaults")
	modeFlag     *string = pflag.StringP("mode", "m", "", "Override prediction mode: sll, ll, or ll_exact_ambig_detection")
	interactive  *bool   = pflag.BoolP("interactive", "i", false, "Pause before each decision on a GNU readline prompt")
	dumpPath     *string = pflag.String("dump", "", "Write every decision's DFA to FILE as a REZI snapshot after running")
	loadPath     *string = pflag.String("load", "", "Warm-start the DFA cache from a previously dumped snapshot file")
	showStats    *bool   = pflag.Bool("stats", false, "Print each decision's state/edge counts after running")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	cfg := pconfig.Default()
	if *configPath != "" {
		loaded, err := pconfig.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: load config: %s\n", err.Error())
			returnCode = ExitScenarioError
			return
		}
		cfg = loaded
	}
	if *modeFlag != "" {
		cfg.PredictionMode = *modeFlag
	}

	sf, graph, err := loadScenario(*scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitScenarioError
		return
	}

	dfas := dfacache.NewCache(graph.MaxTokenType())
	if *loadPath != "" {
		if err := loadSnapshots(dfas, *loadPath); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: load snapshot: %s\n", err.Error())
			returnCode = ExitScenarioError
			return
		}
	}

	pcache := pcontext.NewCache()
	pred := predictor.New(graph, dfas, pcache, nil)
	pred.SetPredictionMode(cfg.Mode())

	tracer := ptrace.New()
	if cfg.TraceVerbose || *interactive {
		tracer.SetListener(func(line string) { fmt.Println(line) })
	}
	pred.SetTrace(tracer)

	tokens := make([]tokenstream.Token, len(sf.Tokens))
	for i, ts := range sf.Tokens {
		tokens[i] = tokenstream.BasicToken{TokType: ts.Type, Lexeme: ts.Text}
	}
	input := tokenstream.NewSlice(tokens)

	var rl *stepReader
	if *interactive {
		rl, err = newStepReader()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitScenarioError
			return
		}
		defer rl.Close()
	}

	for decision := 0; decision < graph.NumDecisions(); decision++ {
		if rl != nil {
			rl.Pause(fmt.Sprintf("about to predict decision %d", decision))
		}

		alt, predictErr := pred.Predict(input, decision, nil)
		if predictErr != nil {
			fmt.Fprintf(os.Stderr, "decision %d: %s\n", decision, predictErr.Error())
			if nva, ok := predictErr.(interface{ Human() string }); ok {
				fmt.Fprintln(os.Stderr, nva.Human())
			}
			returnCode = ExitPredictError
			continue
		}
		fmt.Printf("decision %d: alt %d\n", decision, alt)

		if *showStats {
			stats := dfas.Stats(decision)
			fmt.Printf("  states=%d edges=%d\n", stats.States, stats.Edges)
		}
	}

	if *dumpPath != "" {
		if err := dumpSnapshots(dfas, graph.NumDecisions(), *dumpPath); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: dump snapshot: %s\n", err.Error())
			returnCode = ExitScenarioError
		}
	}
}
