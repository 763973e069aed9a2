package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/pdftoxl/constants"
	"github.com/joseph-ayodele/pdftoxl/internal/common"
	"github.com/joseph-ayodele/pdftoxl/internal/entity"
	"github.com/joseph-ayodele/pdftoxl/internal/extract"
	"github.com/joseph-ayodele/pdftoxl/internal/llm"
	"github.com/joseph-ayodele/pdftoxl/internal/sheet"
	"github.com/joseph-ayodele/pdftoxl/internal/templates"
)

// textExtractor treats the upload bytes as the document text.
type textExtractor struct{}

func (textExtractor) Extract(ctx context.Context, content []byte) (extract.TextExtractionResult, error) {
	switch string(content) {
	case "PANIC":
		panic("corrupt xref table")
	case "BROKEN":
		return extract.TextExtractionResult{}, errors.New("open pdf: malformed PDF")
	}
	return extract.TextExtractionResult{Text: string(content), Pages: 1}, nil
}

type memLedger struct {
	mu   sync.Mutex
	jobs []*entity.ExtractionJob
	err  error
}

func (m *memLedger) Record(_ context.Context, job *entity.ExtractionJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return m.err
}

func fundReply(name string) string {
	return "```json\n" + `{"Fund Data": [{"Source File": "made-up.pdf", "Fund Name": "` + name + `", "Vintage Year": 2020}], "Footnotes": []}` + "\n```"
}

// echoLLM answers with a Fund Data row named after the document text; texts
// starting with "fail" produce an LLM error and "prose" an unparsable reply.
func echoLLM() llm.Client {
	return llm.ClientFunc(func(ctx context.Context, prompt string) (string, error) {
		const marker = "Here is the text to process:\n---\n"
		i := strings.LastIndex(prompt, marker)
		text := strings.TrimSuffix(prompt[i+len(marker):], "\n---\n")
		switch {
		case strings.HasPrefix(text, "fail"):
			return "", &llm.StatusError{Provider: "test", Status: 429, Body: "quota exceeded"}
		case strings.HasPrefix(text, "prose"):
			return "I could not find any fund data in this document.", nil
		case strings.HasPrefix(text, "slow"):
			<-ctx.Done()
			return "", ctx.Err()
		}
		return fundReply(text), nil
	})
}

func template1(t *testing.T) templates.Template {
	t.Helper()
	tpl, err := templates.Default().Lookup("1")
	if err != nil {
		t.Fatal(err)
	}
	return tpl
}

func pdf(name, text string) Upload {
	return Upload{Filename: name, ContentType: constants.ContentTypePDF, Content: []byte(text)}
}

func sourceFiles(rows []*sheet.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.SourceFile()
	}
	return out
}

func TestBatchIsolatesFailingFile(t *testing.T) {
	b := NewBatch(New(textExtractor{}, echoLLM(), nil, nil), nil, WithWorkers(3))
	agg, results, err := b.Run(context.Background(), template1(t), []Upload{
		pdf("one.pdf", "Alpha Fund"),
		pdf("two.pdf", "fail please"),
		pdf("three.pdf", "Gamma Fund"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 3 || !results[0].OK() || results[1].OK() || !results[2].OK() {
		t.Fatalf("results = %+v", results)
	}

	fund := agg.Rows("Fund Data")
	if got := sourceFiles(fund); strings.Join(got, ",") != "one.pdf,three.pdf" {
		t.Errorf("Fund Data source files = %v", got)
	}
	if v, _ := fund[1].Get("Fund Name"); v != "Gamma Fund" {
		t.Errorf("second row Fund Name = %v", v)
	}

	errs := agg.Rows(sheet.ErrorsSheet)
	if len(errs) != 1 {
		t.Fatalf("Errors rows = %d, want 1", len(errs))
	}
	if errs[0].SourceFile() != "two.pdf" {
		t.Errorf("error row file = %q", errs[0].SourceFile())
	}
	msg, _ := errs[0].Get(sheet.ErrorColumn)
	if s, _ := msg.(string); !strings.HasPrefix(s, "An error occurred during LLM extraction") || !strings.Contains(s, "quota exceeded") {
		t.Errorf("error message = %q", msg)
	}
	var se *llm.StatusError
	if !errors.As(results[1].Err, &se) {
		t.Errorf("file error does not unwrap to *llm.StatusError: %v", results[1].Err)
	}
}

func TestBatchTagsEveryRowWithItsFile(t *testing.T) {
	b := NewBatch(New(textExtractor{}, echoLLM(), nil, nil), nil)
	agg, _, err := b.Run(context.Background(), template1(t), []Upload{pdf("real.pdf", "Alpha")})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range agg.Names() {
		for _, row := range agg.Rows(name) {
			if row.SourceFile() != "real.pdf" {
				t.Errorf("sheet %s row tagged %q, want real.pdf", name, row.SourceFile())
			}
		}
	}
	if keys := agg.Rows("Fund Data")[0].Keys(); keys[0] != sheet.SourceFileColumn {
		t.Errorf("LLM-provided Source File should keep its position, keys = %v", keys)
	}
	if names := agg.Names(); len(names) != 2 || names[1] != "Footnotes" {
		t.Errorf("sheets = %v, want empty Footnotes kept in aggregate", names)
	}
}

func TestBatchAllEmptyIsNoData(t *testing.T) {
	b := NewBatch(New(textExtractor{}, echoLLM(), nil, nil), nil)
	agg, _, err := b.Run(context.Background(), template1(t), []Upload{
		pdf("scan1.pdf", ""),
		pdf("scan2.pdf", "  \n\f "),
	})
	if !errors.Is(err, common.ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	if common.Message(err) != MsgNoData {
		t.Errorf("message = %q", common.Message(err))
	}
	errs := agg.Rows(sheet.ErrorsSheet)
	if len(errs) != 2 {
		t.Fatalf("Errors rows = %d", len(errs))
	}
	for _, r := range errs {
		if v, _ := r.Get(sheet.ErrorColumn); v != MsgNoText {
			t.Errorf("error = %v", v)
		}
	}
}

func TestBatchFileFailures(t *testing.T) {
	tests := []struct {
		name       string
		upload     Upload
		wantStatus constants.JobStatus
		wantPrefix string
		wantCause  error
	}{
		{
			name:       "non pdf",
			upload:     Upload{Filename: "photo.png", ContentType: "image/png", Content: []byte("Alpha")},
			wantStatus: constants.JobStatusSkipped,
			wantPrefix: "Skipped non-PDF file",
		},
		{
			name:       "unreadable pdf",
			upload:     pdf("broken.pdf", "BROKEN"),
			wantStatus: constants.JobStatusFailed,
			wantPrefix: "Could not read PDF",
		},
		{
			name:       "library panic",
			upload:     pdf("evil.pdf", "PANIC"),
			wantStatus: constants.JobStatusFailed,
			wantPrefix: "internal error: corrupt xref table",
			wantCause:  common.ErrInternal,
		},
		{
			name:       "prose reply",
			upload:     pdf("chatty.pdf", "prose"),
			wantStatus: constants.JobStatusFailed,
			wantPrefix: "LLM returned data in an invalid format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBatch(New(textExtractor{}, echoLLM(), nil, nil), nil)
			agg, results, _ := b.Run(context.Background(), template1(t), []Upload{tt.upload, pdf("good.pdf", "Alpha")})
			if results[0].Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", results[0].Status, tt.wantStatus)
			}
			if results[0].Err == nil || !strings.HasPrefix(results[0].Err.Message, tt.wantPrefix) {
				t.Fatalf("error = %+v, want prefix %q", results[0].Err, tt.wantPrefix)
			}
			if tt.wantCause != nil && !errors.Is(results[0].Err, tt.wantCause) {
				t.Errorf("cause = %v, want %v", results[0].Err.Cause, tt.wantCause)
			}
			if !results[1].OK() {
				t.Errorf("good file failed: %v", results[1].Err)
			}
			if !agg.HasData() {
				t.Error("good file's data missing from aggregate")
			}
		})
	}
}

func TestBatchFileTimeout(t *testing.T) {
	b := NewBatch(New(textExtractor{}, echoLLM(), nil, nil), nil, WithFileTimeout(20*time.Millisecond))
	agg, results, err := b.Run(context.Background(), template1(t), []Upload{pdf("slow.pdf", "slow"), pdf("fast.pdf", "Alpha")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].OK() || results[0].Err.Message != "Processing timed out." {
		t.Errorf("slow result = %+v", results[0].Err)
	}
	if got := sourceFiles(agg.Rows("Fund Data")); len(got) != 1 || got[0] != "fast.pdf" {
		t.Errorf("Fund Data = %v", got)
	}
}

func TestBatchSequentialMatchesParallel(t *testing.T) {
	uploads := []Upload{pdf("a.pdf", "A"), pdf("b.pdf", "B"), pdf("c.pdf", "fail"), pdf("d.pdf", "D")}
	run := func(workers int) string {
		b := NewBatch(New(textExtractor{}, echoLLM(), nil, nil), nil, WithWorkers(workers))
		agg, _, err := b.Run(context.Background(), template1(t), uploads)
		if err != nil {
			t.Fatal(err)
		}
		js, err := agg.MarshalJSON()
		if err != nil {
			t.Fatal(err)
		}
		return string(js)
	}
	if seq, par := run(1), run(4); seq != par {
		t.Errorf("parallel output differs from sequential:\n%s\n%s", seq, par)
	}
}

func TestBatchRecordsLedger(t *testing.T) {
	ledger := &memLedger{err: errors.New("db down")}
	b := NewBatch(New(textExtractor{}, echoLLM(), nil, nil), nil, WithLedger(ledger))
	_, _, err := b.Run(context.Background(), template1(t), []Upload{
		pdf("ok.pdf", "Alpha"),
		{Filename: "notes.txt", ContentType: "text/plain", Content: []byte("x")},
	})
	if err != nil {
		t.Fatalf("ledger failures must not fail the batch: %v", err)
	}
	if len(ledger.jobs) != 2 {
		t.Fatalf("recorded %d jobs, want 2", len(ledger.jobs))
	}
	byFile := map[string]*entity.ExtractionJob{}
	for _, j := range ledger.jobs {
		byFile[j.Filename] = j
	}
	ok, skipped := byFile["ok.pdf"], byFile["notes.txt"]
	if ok == nil || skipped == nil {
		t.Fatalf("recorded files = %v", byFile)
	}
	if ok.Status != constants.JobStatusSucceeded || ok.TemplateID != "1" || !strings.Contains(string(ok.ExtractedData), `"Fund Name":"Alpha"`) {
		t.Errorf("ok job = %+v (data %s)", ok, ok.ExtractedData)
	}
	if skipped.Status != constants.JobStatusSkipped || skipped.ErrorMessage == nil {
		t.Errorf("skipped job = %+v", skipped)
	}
}

// gatedLedger holds every Record call until release is closed.
type gatedLedger struct {
	arrived chan string
	release chan struct{}
}

func (g *gatedLedger) Record(ctx context.Context, job *entity.ExtractionJob) error {
	g.arrived <- job.Filename
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestBatchRecordsLedgerFromWorkers(t *testing.T) {
	uploads := []Upload{pdf("a.pdf", "A"), pdf("b.pdf", "B"), pdf("c.pdf", "C")}
	ledger := &gatedLedger{arrived: make(chan string, len(uploads)), release: make(chan struct{})}
	b := NewBatch(New(textExtractor{}, echoLLM(), nil, nil), nil, WithWorkers(len(uploads)), WithLedger(ledger))

	tpl := template1(t)
	done := make(chan error, 1)
	go func() {
		_, _, err := b.Run(context.Background(), tpl, uploads)
		done <- err
	}()

	// All writes must be in flight at once; recording one by one would stall here.
	seen := map[string]bool{}
	for range uploads {
		select {
		case name := <-ledger.arrived:
			seen[name] = true
		case <-time.After(2 * time.Second):
			close(ledger.release)
			t.Fatalf("ledger writes are serialized; in flight = %v", seen)
		}
	}
	close(ledger.release)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != len(uploads) {
		t.Errorf("recorded %v", seen)
	}
}

func TestParseStageCachesContract(t *testing.T) {
	s := NewParseStage(echoLLM(), nil)
	tpl := template1(t)
	first := s.contract(tpl)
	if first == nil {
		t.Fatal("no contract for template 1")
	}
	if again := s.contract(tpl); again != first {
		t.Error("contract compiled twice for the same template")
	}
}

func TestBatchNoUploads(t *testing.T) {
	b := NewBatch(New(textExtractor{}, echoLLM(), nil, nil), nil)
	if _, _, err := b.Run(context.Background(), template1(t), nil); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}
