package bot

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"board_mirror/internal/model"
	"board_mirror/internal/syncer"
)

func TestParseIDArg(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		want    int64
		wantErr bool
	}{
		{name: "plain", args: "12345", want: 12345},
		{name: "hash prefix", args: "#678", want: 678},
		{name: "extra words ignored", args: "42 please", want: 42},
		{name: "empty", args: "", wantErr: true},
		{name: "not a number", args: "abc", wantErr: true},
		{name: "zero", args: "0", wantErr: true},
		{name: "negative", args: "-3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIDArg(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseIDArg() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatReport(t *testing.T) {
	started := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		report syncer.Report
		want   string
	}{
		{
			name: "success",
			report: syncer.Report{
				Kind: syncer.KindCatalog, StartedAt: started, Duration: 1500 * time.Millisecond,
				Created: 1, Appended: 2, Skipped: 3, Unchanged: 4, Failed: 5,
			},
			want: "catalog pass at 2024-03-01 09:30 UTC (2s)\n   1 new, 2 updated, 3 skipped, 4 unchanged, 5 failed\n",
		},
		{
			name:   "failure",
			report: syncer.Report{Kind: syncer.KindArchive, StartedAt: started, Err: errors.New("boom")},
			want:   "archive pass at 2024-03-01 09:30 UTC (0s) FAILED: boom\n   0 new, 0 updated, 0 skipped, 0 unchanged, 0 failed\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, FormatReport(tt.report)); diff != "" {
				t.Errorf("FormatReport() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatThread(t *testing.T) {
	t.Run("untitled without replies", func(t *testing.T) {
		rec := &model.ThreadRecord{Date: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
		want := "#5 (no subject)\nPosted: 2024-03-01 12:00 UTC\nReplies: 0\n"
		if diff := cmp.Diff(want, FormatThread(5, rec)); diff != "" {
			t.Errorf("FormatThread() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("long text is truncated", func(t *testing.T) {
		rec := &model.ThreadRecord{Title: "t", Text: strings.Repeat("ж", previewSize+10)}
		got := FormatThread(5, rec)
		if !strings.HasSuffix(got, strings.Repeat("ж", previewSize)+"...") {
			t.Errorf("expected truncated preview, got:\n%s", got)
		}
	})
}
