// repl (read eval print loop) adapts malh to the command line.
package repl

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/relhash/malh/malh"
)

type repl struct {
	useMemory bool

	cur     *malh.Relation
	curName string
}

// New returns a repl. useMemory selects whether "create"/"open" operate on
// ephemeral in-process relations instead of <name>.info/.data/.ovflow files
// - useful for demos that should not touch the working directory.
func New(useMemory bool) *repl {
	return &repl{useMemory: useMemory}
}

func (r *repl) Run() {
	fmt.Println("Welcome to malh. Type .help for commands, .exit to exit")
	reader := bufio.NewScanner(os.Stdin)
	for r.getInput(reader) {
		input := strings.TrimSpace(reader.Text())
		if input == "" {
			continue
		}
		if input == ".exit" {
			if r.cur != nil {
				_ = r.cur.Close()
			}
			os.Exit(0)
		}
		if input == ".help" {
			r.printHelp()
			continue
		}
		if err := r.execute(input); err != nil {
			fmt.Printf("Err: %s\n", err.Error())
		}
	}
}

func (*repl) getInput(reader *bufio.Scanner) bool {
	fmt.Printf("malh > ")
	return reader.Scan()
}

func (*repl) printHelp() {
	fmt.Println("commands:")
	fmt.Println("  create <name> <nattrs> <npages0> <depth0> <cvSpec>")
	fmt.Println("  open <name> [read|write]")
	fmt.Println("  close")
	fmt.Println("  insert <f1,f2,...,fn>")
	fmt.Println("  select <f1,f2,...,fn>   (? marks a wildcard field)")
	fmt.Println("  stats")
	fmt.Println("  .exit")
}

func (r *repl) execute(line string) error {
	cmd, rest := splitFirst(line)
	switch cmd {
	case "create":
		return r.cmdCreate(rest)
	case "open":
		return r.cmdOpen(rest)
	case "close":
		return r.cmdClose()
	case "insert":
		return r.cmdInsert(rest)
	case "select":
		return r.cmdSelect(rest)
	case "stats":
		return r.cmdStats()
	default:
		return fmt.Errorf("unrecognized command %q (try .help)", cmd)
	}
}

func (r *repl) cmdCreate(rest string) error {
	args := strings.Fields(rest)
	if len(args) != 5 {
		return fmt.Errorf("usage: create <name> <nattrs> <npages0> <depth0> <cvSpec>")
	}
	name := args[0]
	nattrs, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("nattrs: %w", err)
	}
	npages0, err := strconv.ParseInt(args[2], 10, 32)
	if err != nil {
		return fmt.Errorf("npages0: %w", err)
	}
	depth0, err := strconv.ParseUint(args[3], 10, 32)
	if err != nil {
		return fmt.Errorf("depth0: %w", err)
	}
	cvSpec := args[4]
	rel, err := malh.NewRelation(r.useMemory, name, nattrs, int32(npages0), uint(depth0), cvSpec)
	if err != nil {
		return err
	}
	if r.cur != nil {
		_ = r.cur.Close()
	}
	r.cur = rel
	r.curName = name
	fmt.Printf("created and opened %q for writing\n", name)
	return nil
}

func (r *repl) cmdOpen(rest string) error {
	args := strings.Fields(rest)
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: open <name> [read|write]")
	}
	name := args[0]
	mode := malh.ModeWrite
	if len(args) == 2 {
		switch args[1] {
		case "read":
			mode = malh.ModeRead
		case "write":
			mode = malh.ModeWrite
		default:
			return fmt.Errorf("mode must be read or write, got %q", args[1])
		}
	}
	rel, err := malh.OpenRelation(r.useMemory, name, mode)
	if err != nil {
		return err
	}
	if r.cur != nil {
		_ = r.cur.Close()
	}
	r.cur = rel
	r.curName = name
	fmt.Printf("opened %q\n", name)
	return nil
}

func (r *repl) cmdClose() error {
	if r.cur == nil {
		return fmt.Errorf("no relation is open")
	}
	if err := malh.CloseRelation(r.cur); err != nil {
		return err
	}
	fmt.Printf("closed %q\n", r.curName)
	r.cur = nil
	r.curName = ""
	return nil
}

func (r *repl) cmdInsert(rest string) error {
	if r.cur == nil {
		return fmt.Errorf("no relation is open")
	}
	if rest == "" {
		return fmt.Errorf("usage: insert <f1,f2,...,fn>")
	}
	bucket, err := malh.AddToRelation(r.cur, rest)
	if err != nil {
		return err
	}
	fmt.Printf("inserted into bucket %d\n", bucket)
	return nil
}

func (r *repl) cmdSelect(rest string) error {
	if r.cur == nil {
		return fmt.Errorf("no relation is open")
	}
	if rest == "" {
		return fmt.Errorf("usage: select <f1,f2,...,fn>")
	}
	q, err := malh.StartQuery(r.cur, rest)
	if err != nil {
		return err
	}
	defer malh.CloseQuery(q)

	var rows [][]string
	for {
		tup, ok, err := malh.GetNextTuple(q)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		rows = append(rows, strings.Split(tup, ","))
	}
	nattrs := r.cur.Nattrs()
	header := make([]string, nattrs)
	for i := range header {
		header[i] = fmt.Sprintf("f%d", i+1)
	}
	fmt.Println(r.printRows(header, rows))
	return nil
}

func (r *repl) cmdStats() error {
	if r.cur == nil {
		return fmt.Errorf("no relation is open")
	}
	fmt.Println(malh.RelationStats(r.cur))
	return nil
}

// splitFirst splits line into its first whitespace-delimited token and the
// (trimmed) remainder.
func splitFirst(line string) (first, rest string) {
	fields := strings.SplitN(line, " ", 2)
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], strings.TrimSpace(fields[1])
}

func (r *repl) printRows(header []string, rows [][]string) string {
	ret := ""
	widths := r.getWidths(header, rows)
	ret += r.printHeader(header, widths)
	ret += "\n"
	for _, row := range rows {
		ret += r.printRow(row, widths)
		ret += "\n"
	}
	if len(rows) == 0 {
		ret += "(0 rows)\n"
	}
	return ret
}

func (*repl) getWidths(header []string, rows [][]string) []int {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, column := range row {
			if i < len(widths) && widths[i] < len(column) {
				widths[i] = len(column)
			}
		}
	}
	return widths
}

func (*repl) printHeader(header []string, widths []int) string {
	ret := ""
	for i, column := range header {
		ret += fmt.Sprintf(" %-*s ", widths[i], column)
		if i != len(header)-1 {
			ret += "|"
		}
	}
	ret += "\n"
	for i := range header {
		ret += fmt.Sprintf("-%s-", strings.Repeat("-", widths[i]))
		if i != len(header)-1 {
			ret += "+"
		}
	}
	return ret
}

func (*repl) printRow(row []string, widths []int) string {
	ret := ""
	for i, column := range row {
		ret += fmt.Sprintf(" %-*s ", widths[i], column)
		if i != len(row)-1 {
			ret += "|"
		}
	}
	return ret
}
