package conversion

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"daybook-ndjson-backend/internal/models"
	"daybook-ndjson-backend/internal/repository"
	"daybook-ndjson-backend/internal/services/flattener"
	"daybook-ndjson-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const sampleDaybook = `{"tallymessage": [{"date": "20240101", "vouchernumber": "V1", "vouchertypename": "Sales",
	"allledgerentries": [{"ledgername": "Cash", "amount": "1,000"}, {"ledgername": "Sales", "amount": "(1,000)"}, "junk"]}]}`

type fakeRecorder struct {
	created   int
	completed map[uuid.UUID]repository.ConversionOutcome
	failed    map[uuid.UUID]string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		completed: map[uuid.UUID]repository.ConversionOutcome{},
		failed:    map[uuid.UUID]string{},
	}
}

func (f *fakeRecorder) Create(_ context.Context, source string, size int64) (*models.Conversion, error) {
	f.created++
	return &models.Conversion{ID: uuid.New(), SourceFilename: source, SourceBytes: size}, nil
}

func (f *fakeRecorder) MarkCompleted(_ context.Context, id uuid.UUID, out repository.ConversionOutcome) error {
	f.completed[id] = out
	return nil
}

func (f *fakeRecorder) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	f.failed[id] = reason
	return nil
}

func newTestService(t *testing.T, rec Recorder) (*Service, *storage.NDJSONStore) {
	t.Helper()
	store, err := storage.NewNDJSONStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewService(store, rec, zerolog.New(io.Discard)), store
}

func TestConvert_Success(t *testing.T) {
	rec := newFakeRecorder()
	svc, store := newTestService(t, rec)

	res, err := svc.Convert(context.Background(), "april.json", []byte(sampleDaybook))
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}

	if res.RowsCreated != 2 || res.VoucherCount != 1 {
		t.Errorf("rows=%d vouchers=%d, want 2/1", res.RowsCreated, res.VoucherCount)
	}
	if res.NDJSONFile != "april.ndjson" {
		t.Errorf("NDJSONFile = %q, want april.ndjson", res.NDJSONFile)
	}
	if res.DownloadURL != "/download-ndjson?filename=april.ndjson" {
		t.Errorf("DownloadURL = %q", res.DownloadURL)
	}
	if res.Stats.SkippedEntries != 1 {
		t.Errorf("SkippedEntries = %d, want 1", res.Stats.SkippedEntries)
	}

	out, ok := rec.completed[res.ConversionID]
	if !ok {
		t.Fatalf("conversion %s not marked completed", res.ConversionID)
	}
	if out.RowsCreated != 2 || out.RowsByType["Sales"] != 2 {
		t.Errorf("recorded outcome = %+v", out)
	}

	body, err := os.ReadFile(filepath.Join(store.Dir(), "april.ndjson"))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"date":"20240101","voucher_number":"V1","voucher_type":"Sales","narration":null,"party":null,"ledger_name":"Cash","amount":1000,"guid":null}` + "\n" +
		`{"date":"20240101","voucher_number":"V1","voucher_type":"Sales","narration":null,"party":null,"ledger_name":"Sales","amount":-1000,"guid":null}` + "\n"
	if string(body) != want {
		t.Errorf("artifact =\n%s\nwant\n%s", body, want)
	}
}

func TestConvert_Failures(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr func(error) bool
	}{
		{
			name: "invalid json",
			raw:  `{"tallymessage": [`,
			wantErr: func(err error) bool {
				var de *flattener.DecodeError
				return errors.As(err, &de)
			},
		},
		{
			name:    "no voucher list",
			raw:     `{"vouchers": []}`,
			wantErr: func(err error) bool { return errors.Is(err, ErrNoRows) },
		},
		{
			name:    "vouchers without ledgers",
			raw:     `{"tallymessage": [{"date": "20240101"}]}`,
			wantErr: func(err error) bool { return errors.Is(err, ErrNoRows) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newFakeRecorder()
			svc, store := newTestService(t, rec)

			res, err := svc.Convert(context.Background(), "bad.json", []byte(tt.raw))
			if err == nil || !tt.wantErr(err) {
				t.Fatalf("Convert() = %+v, %v", res, err)
			}
			if len(rec.failed) != 1 || len(rec.completed) != 0 {
				t.Errorf("failed=%d completed=%d, want 1/0", len(rec.failed), len(rec.completed))
			}
			for _, reason := range rec.failed {
				if reason != err.Error() {
					t.Errorf("recorded reason %q, want %q", reason, err.Error())
				}
			}

			list, err := store.List()
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 0 {
				t.Errorf("artifact written on failure: %+v", list)
			}
		})
	}
}

func TestConvert_WithoutRecorder(t *testing.T) {
	svc, _ := newTestService(t, nil)

	res, err := svc.Convert(context.Background(), "offline.json", []byte(sampleDaybook))
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if res.ConversionID != uuid.Nil {
		t.Errorf("ConversionID = %s, want nil UUID", res.ConversionID)
	}
}

func TestDownloadURL_Escapes(t *testing.T) {
	got := DownloadURL("my daybook&co.ndjson")
	if !strings.HasPrefix(got, "/download-ndjson?filename=") || strings.Contains(got, " ") || strings.Contains(got, "&co") {
		t.Errorf("DownloadURL = %q, want escaped filename", got)
	}
}
