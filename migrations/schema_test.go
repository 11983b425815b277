package migrations

import (
	"strings"
	"testing"
)

// Columns the repositories bind nil pointers into. A NOT NULL constraint on
// any of them turns the first such write into a 23502 at runtime, so the
// schema must keep them nullable.
var pointerBackedColumns = map[string][]string{
	"00001_create_artworks.sql":            {"upload_token", "upload_token_expires_at", "generation_started_at", "generation_completed_at"},
	"00002_create_admin_reviews.sql":       {"review_notes", "reviewed_by", "reviewed_at"},
	"00003_create_orders.sql":              {"payment_intent_id", "fulfillment_order_id", "fulfillment_status"},
	"00004_create_notification_outbox.sql": {"last_error"},
}

func TestPointerBackedColumnsAreNullable(t *testing.T) {
	for file, columns := range pointerBackedColumns {
		ddl, err := FS.ReadFile(file)
		if err != nil {
			t.Fatalf("read %s: %v", file, err)
		}

		for _, column := range columns {
			line := columnLine(string(ddl), column)
			if line == "" {
				t.Errorf("%s: column %q not found", file, column)
				continue
			}
			if strings.Contains(strings.ToUpper(line), "NOT NULL") {
				t.Errorf("%s: column %q is NOT NULL but the model binds a nil pointer into it", file, column)
			}
		}
	}
}

func columnLine(ddl, column string) string {
	for _, line := range strings.Split(ddl, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, column+" ") {
			return trimmed
		}
	}
	return ""
}
