package repl

import "testing"

func TestPrintRows(t *testing.T) {
	r := New(true)
	header := []string{"f1", "f2"}
	rows := [][]string{
		{"1", "gud name"},
		{"2", "gudder name"},
		{"3", "guddest name"},
	}
	got := r.printRows(header, rows)
	want := "" +
		" f1 | f2           \n" +
		"----+--------------\n" +
		" 1  | gud name     \n" +
		" 2  | gudder name  \n" +
		" 3  | guddest name \n"
	if got != want {
		t.Errorf("\nwant\n%s\ngot\n%s\n", want, got)
	}
}

func TestPrintRowsEmpty(t *testing.T) {
	r := New(true)
	got := r.printRows([]string{"f1"}, nil)
	want := "" +
		" f1 \n" +
		"----\n" +
		"(0 rows)\n"
	if got != want {
		t.Errorf("\nwant\n%s\ngot\n%s\n", want, got)
	}
}

func TestSplitFirst(t *testing.T) {
	cases := []struct {
		line      string
		wantFirst string
		wantRest  string
	}{
		{"stats", "stats", ""},
		{"insert 1,a,x,10", "insert", "1,a,x,10"},
		{"select ?,b,?,?", "select", "?,b,?,?"},
	}
	for _, c := range cases {
		first, rest := splitFirst(c.line)
		if first != c.wantFirst || rest != c.wantRest {
			t.Errorf("splitFirst(%q) = (%q,%q), want (%q,%q)", c.line, first, rest, c.wantFirst, c.wantRest)
		}
	}
}

func TestExecuteUnrecognizedCommand(t *testing.T) {
	r := New(true)
	if err := r.execute("bogus"); err == nil {
		t.Fatal("want an error for an unrecognized command")
	}
}

func TestExecuteRequiresOpenRelationForInsertAndSelect(t *testing.T) {
	r := New(true)
	if err := r.cmdInsert("1,a"); err == nil {
		t.Fatal("want an error inserting with no relation open")
	}
	if err := r.cmdSelect("?,?"); err == nil {
		t.Fatal("want an error selecting with no relation open")
	}
	if err := r.cmdStats(); err == nil {
		t.Fatal("want an error for stats with no relation open")
	}
}

func TestCreateOpenInsertSelectRoundTrip(t *testing.T) {
	r := New(true)
	if err := r.cmdCreate("demo 2 1 0 0:0,1:0"); err != nil {
		t.Fatalf("cmdCreate: %s", err)
	}
	if err := r.cmdInsert("1,a"); err != nil {
		t.Fatalf("cmdInsert: %s", err)
	}
	if err := r.cmdSelect("1,a"); err != nil {
		t.Fatalf("cmdSelect: %s", err)
	}
	if err := r.cmdStats(); err != nil {
		t.Fatalf("cmdStats: %s", err)
	}
	if err := r.cmdClose(); err != nil {
		t.Fatalf("cmdClose: %s", err)
	}
	if err := r.cmdOpen("demo read"); err != nil {
		t.Fatalf("cmdOpen: %s", err)
	}
}
