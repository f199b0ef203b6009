package driveengine

import "testing"

func TestFileID(t *testing.T) {
	tests := []struct {
		link string
		id   string
		ok   bool
	}{
		{"https://drive.google.com/file/d/1AbC_dEf-123/view?usp=sharing", "1AbC_dEf-123", true},
		{"https://drive.google.com/open?id=XyZ789", "XyZ789", true},
		{"https://drive.google.com/drive/folders/F0lder-Id_1", "F0lder-Id_1", true},
		{"https://example.com/file.zip", "", false},
	}
	for _, tt := range tests {
		id, err := FileID(tt.link)
		if tt.ok && (err != nil || id != tt.id) {
			t.Errorf("FileID(%q) = %q, %v; want %q", tt.link, id, err, tt.id)
		}
		if !tt.ok && err == nil {
			t.Errorf("FileID(%q) succeeded, want error", tt.link)
		}
	}
}
