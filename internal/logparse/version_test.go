package logparse

import "testing"

func TestRunningVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{
			name:  "vanilla banner",
			lines: []string{"[12:00:00] [Server thread/INFO]: Starting minecraft server version 1.20.4"},
			want:  "1.20.4",
		},
		{
			name: "first match wins",
			lines: []string{
				"noise",
				"[Server thread/INFO]: starting Minecraft server version 1.19",
				"[Server thread/INFO]: Starting minecraft server version 1.21",
			},
			want: "1.19",
		},
		{
			name:  "no banner",
			lines: []string{"Done (3.1s)!"},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RunningVersion(tt.lines); got != tt.want {
				t.Fatalf("RunningVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}
