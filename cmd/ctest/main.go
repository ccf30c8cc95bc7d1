// ctest compiles the markdown test cases with the real toolchain: cbc
// emits assembly, cc assembles and links it, and the binary's exit status
// is compared against the case's expectations.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/cbc/pkg/casefile"
	"github.com/xplshn/cbc/pkg/util"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

type CaseResult struct {
	File    string     `json:"file"`
	Name    string     `json:"name"`
	Hash    string     `json:"hash"`
	Status  string     `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string     `json:"message,omitempty"`
	Diff    string     `json:"diff,omitempty"`
	Compile *Execution `json:"compile,omitempty"`
	Run     *Execution `json:"run,omitempty"`
}

func (r *CaseResult) key() string { return r.File + "#" + r.Name }

type SuiteResults map[string]*CaseResult

type job struct {
	file string
	tc   casefile.Case
	hash string
}

var (
	compilerPath = flag.String("compiler", "./cbc", "Path to the compiler under test.")
	compilerArgs = flag.String("compiler-args", "", "Extra compiler arguments (space-separated).")
	ccPath       = flag.String("cc", "cc", "Assembler/linker driver.")
	caseFiles    = flag.String("cases", "pkg/compiler/testdata/*.md", "Glob pattern(s) for case files (space-separated).")
	outputJSON   = flag.String("output", ".ctest_results.json", "Output file for the JSON test report.")
	timeout      = flag.Duration("timeout", 5*time.Second, "Timeout for each command execution.")
	jobs         = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose      = flag.Bool("v", false, "Enable verbose logging.")
	useCache     = flag.Bool("cached", false, "Skip cases that passed last time with an unchanged compiler and case.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	tempDir, err := os.MkdirTemp("", "ctest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)
	setupInterruptHandler(tempDir)

	compilerHash, err := hashFile(*compilerPath)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Cannot read compiler '%s': %v\n", cRed, cNone, *compilerPath, err)
	}

	files, err := expandGlobPatterns(*caseFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No case files found matching the pattern(s).")
		return
	}

	previous := loadPreviousResults(*outputJSON)

	var pending []job
	var results []*CaseResult
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			results = append(results, &CaseResult{File: file, Status: "ERROR", Message: err.Error()})
			continue
		}
		cases, err := casefile.Extract(data)
		if err != nil {
			results = append(results, &CaseResult{File: file, Status: "ERROR", Message: err.Error()})
			continue
		}
		for _, tc := range cases {
			j := job{file: file, tc: tc, hash: caseHash(compilerHash, tc)}
			key := (&CaseResult{File: file, Name: tc.Name}).key()
			if prev, ok := previous[key]; *useCache && ok && prev.Status == "PASS" && prev.Hash == j.hash {
				results = append(results, &CaseResult{File: file, Name: tc.Name, Hash: j.hash, Status: "SKIP", Message: "Unchanged since last pass"})
				continue
			}
			pending = append(pending, j)
		}
	}

	tasks := make(chan job, len(pending))
	resultsChan := make(chan *CaseResult, len(pending))
	var wg sync.WaitGroup
	for i := 0; i < max(*jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range tasks {
				resultsChan <- runCase(j, tempDir)
			}
		}()
	}
	for _, j := range pending {
		tasks <- j
	}
	close(tasks)
	wg.Wait()
	close(resultsChan)

	for r := range resultsChan {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].key() < results[j].key() })

	printSummary(results)
	if writeJSONReport(results, *outputJSON) {
		os.Exit(1)
	}
}

// setupInterruptHandler is used to clean up on CTRL+C
func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

// caseHash keys a case on the compiler binary, its source and its
// expectations, so editing any of them invalidates the cache.
func caseHash(compilerHash string, tc casefile.Case) string {
	h := xxhash.New()
	h.WriteString(compilerHash)
	h.WriteString(*compilerArgs)
	h.WriteString(tc.Source)
	for _, e := range tc.Expect {
		h.WriteString(string(e.Kind))
		h.WriteString(e.Content)
	}
	return fmt.Sprintf("%x", h.Sum64())
}

func loadPreviousResults(path string) SuiteResults {
	previous := make(SuiteResults)
	data, err := os.ReadFile(path)
	if err != nil {
		return previous
	}
	if err := json.Unmarshal(data, &previous); err != nil {
		log.Printf("%s[WARN]%s Could not parse previous results file %s. Cache will not be used.\n", cYellow, cNone, path)
		return make(SuiteResults)
	}
	return previous
}

func executeCommand(ctx context.Context, command string, args ...string) *Execution {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Execution{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(startTime)}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		result.TimedOut = true
		result.ExitCode = -1
	case err != nil:
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -2
			result.Stderr += "\nExecution error: " + err.Error()
		}
	}
	return result
}

func runCase(j job, tempDir string) *CaseResult {
	res := &CaseResult{File: j.file, Name: j.tc.Name, Hash: j.hash}
	if *verbose {
		log.Printf("%s[RUN]%s %s\n", cCyan, cNone, res.key())
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	srcPath := filepath.Join(tempDir, j.hash+".c")
	asmPath := filepath.Join(tempDir, j.hash+".s")
	binPath := filepath.Join(tempDir, j.hash)
	if err := os.WriteFile(srcPath, []byte(j.tc.Source), 0o644); err != nil {
		res.Status, res.Message = "ERROR", err.Error()
		return res
	}

	args := append(strings.Fields(*compilerArgs), "-o", asmPath, srcPath)
	res.Compile = executeCommand(ctx, *compilerPath, args...)

	var failures []string
	for _, e := range j.tc.Expect {
		if e.Kind != casefile.KindError {
			continue
		}
		if msg := checkError(e, j.tc.Source, srcPath, res.Compile); msg != "" {
			failures = append(failures, msg)
		}
	}
	if res.Compile.ExitCode != 0 {
		if len(failures) == 0 && expectsError(j.tc) {
			res.Status = "PASS"
			return res
		}
		if !expectsError(j.tc) {
			failures = append(failures, "compiler failed:\n"+res.Compile.Stderr)
		}
		res.Status, res.Message = "FAIL", strings.Join(failures, "\n")
		return res
	}
	if expectsError(j.tc) {
		res.Status, res.Message = "FAIL", "expected a diagnostic, compilation succeeded"
		return res
	}

	asm, err := os.ReadFile(asmPath)
	if err != nil {
		res.Status, res.Message = "ERROR", err.Error()
		return res
	}
	for _, e := range j.tc.Expect {
		if e.Kind == casefile.KindAsm {
			if msg := checkAsm(e, string(asm)); msg != "" {
				failures = append(failures, msg)
			}
		}
	}

	for _, e := range j.tc.Expect {
		if e.Kind != casefile.KindExit {
			continue
		}
		want, err := e.ExitCode()
		if err != nil {
			res.Status, res.Message = "ERROR", fmt.Sprintf("line %d: %v", e.Line, err)
			return res
		}
		link := executeCommand(ctx, *ccPath, "-no-pie", "-o", binPath, asmPath)
		if link.ExitCode != 0 {
			res.Status, res.Message = "FAIL", "cc failed:\n"+link.Stderr
			return res
		}
		res.Run = executeCommand(ctx, binPath)
		type outcome struct {
			ExitCode int
			TimedOut bool
		}
		if diff := cmp.Diff(outcome{ExitCode: int(want & 0xff)}, outcome{res.Run.ExitCode, res.Run.TimedOut}); diff != "" {
			res.Diff = diff
			failures = append(failures, "exit status mismatch")
		}
	}

	if len(failures) > 0 {
		res.Status, res.Message = "FAIL", strings.Join(failures, "\n")
		return res
	}
	res.Status = "PASS"
	return res
}

func expectsError(tc casefile.Case) bool {
	for _, e := range tc.Expect {
		if e.Kind == casefile.KindError {
			return true
		}
	}
	return false
}

// checkError matches the diagnostic text and, when an offset is given,
// the file:line:col prefix the compiler derives from it.
func checkError(e casefile.Expectation, source, srcPath string, compile *Execution) string {
	msg, offset, err := e.ErrorSpec()
	if err != nil {
		return err.Error()
	}
	if compile.ExitCode == 0 {
		return ""
	}
	if !strings.Contains(compile.Stderr, msg) {
		return fmt.Sprintf("diagnostic %q not found in:\n%s", msg, compile.Stderr)
	}
	if offset >= 0 {
		line, col := util.Position([]byte(source), offset)
		loc := fmt.Sprintf("%s:%d:%d:", srcPath, line, col)
		if !strings.Contains(compile.Stderr, loc) {
			return fmt.Sprintf("diagnostic not reported at %s:\n%s", loc, compile.Stderr)
		}
	}
	return ""
}

// checkAsm requires the fence's lines to appear in order.
func checkAsm(e casefile.Expectation, asm string) string {
	var got []string
	for _, l := range strings.Split(asm, "\n") {
		got = append(got, strings.TrimSpace(l))
	}
	i := 0
	for _, want := range e.AsmLines() {
		for i < len(got) && got[i] != want {
			i++
		}
		if i == len(got) {
			return fmt.Sprintf("line %d: %q not found in order", e.Line, want)
		}
		i++
	}
	return ""
}

func printSummary(results []*CaseResult) {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Status]++
		color := cGreen
		switch r.Status {
		case "FAIL", "ERROR":
			color = cRed
		case "SKIP":
			color = cYellow
		}
		if r.Status == "PASS" && !*verbose {
			continue
		}
		fmt.Printf("%s[%s]%s %s\n", color, r.Status, cNone, r.key())
		if r.Message != "" {
			fmt.Printf("    %s\n", strings.ReplaceAll(r.Message, "\n", "\n    "))
		}
		fmt.Print(formatDiff(r.Diff))
	}
	fmt.Printf("\n%sSummary:%s %s%d passed%s, %s%d failed%s, %d errors, %s%d skipped%s\n",
		cBold, cNone, cGreen, counts["PASS"], cNone, cRed, counts["FAIL"], cNone, counts["ERROR"], cYellow, counts["SKIP"], cNone)
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "-"):
			builder.WriteString(cRed)
		case strings.HasPrefix(trimmed, "+"):
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line + cNone + "\n")
	}
	return builder.String()
}

// writeJSONReport stores the results and reports whether any case failed.
func writeJSONReport(results []*CaseResult, path string) bool {
	resultsMap := make(SuiteResults, len(results))
	failed := false
	for _, r := range results {
		resultsMap[r.key()] = r
		failed = failed || r.Status == "FAIL" || r.Status == "ERROR"
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return failed
	}
	if err := os.WriteFile(path, jsonData, 0o644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, path, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", path)
	}
	return failed
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			if info, err := os.Stat(file); err == nil && info.Mode().IsRegular() && !seen[file] {
				allFiles = append(allFiles, file)
				seen[file] = true
			}
		}
	}
	return allFiles, nil
}
