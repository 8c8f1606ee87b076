package paramfile

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cwbudde/algo-nmr/nmr"
)

func TestReadWrite(t *testing.T) {
	in := "# view\nDFTLength= 1024\n\nFilterWidth=  2.5e3 \nPhaseCorr0= 0 90000 180000\n"
	f, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	want := []Entry{
		{"DFTLength", "1024"},
		{"FilterWidth", "2.5e3"},
		{"PhaseCorr0", "0 90000 180000"},
	}
	if diff := cmp.Diff(want, f.Entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	wantText := "DFTLength= 1024\nFilterWidth= 2.5e3\nPhaseCorr0= 0 90000 180000\n"
	if got := buf.String(); got != wantText {
		t.Fatalf("got=%q want=%q", got, wantText)
	}
}

func TestGetSetCaseInsensitive(t *testing.T) {
	f := &File{}
	f.Set("ProcEnd", "10")
	f.Setf("procend", "%d", 20)
	f.Set("ProcStart", "")

	if len(f.Entries) != 2 {
		t.Fatalf("entries=%v want two", f.Entries)
	}
	if v, ok := f.Get("PROCEND"); !ok || v != "20" {
		t.Fatalf("Get=%q,%v want=20,true", v, ok)
	}
	if _, ok := f.Get("missing"); ok {
		t.Fatal("Get(missing) ok=true")
	}
	if fields, ok := f.Fields("ProcStart"); !ok || len(fields) != 0 {
		t.Fatalf("Fields=%v,%v want empty,true", fields, ok)
	}
}

func TestReadMalformed(t *testing.T) {
	for _, in := range []string{"novalue\n", "= 3\n"} {
		if _, err := Read(strings.NewReader(in)); !errors.Is(err, nmr.StatusInvalidParam) {
			t.Fatalf("Read(%q) err=%v want InvalidParam", in, err)
		}
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteError(t *testing.T) {
	f := &File{Entries: []Entry{{"A", "1"}}}
	if err := f.Write(failWriter{}); !errors.Is(err, nmr.StatusIO) {
		t.Fatalf("err=%v want IO", err)
	}
}
