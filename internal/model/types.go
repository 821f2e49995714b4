package model

import "time"

// Status is the externally visible liveness of the supervised process.
// PID is zero while nothing is running.
type Status struct {
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"startedAt,omitzero"`
}

// StartResult reports the outcome of a start request that did not fail.
type StartResult struct {
	AlreadyRunning bool `json:"alreadyRunning"`
	PID            int  `json:"pid"`
}

// RunRecord is one supervised process lifetime as kept by the run history.
type RunRecord struct {
	ID            string     `json:"id"`
	PID           int        `json:"pid"`
	ServerType    string     `json:"serverType,omitempty"`
	ServerVersion string     `json:"serverVersion,omitempty"`
	StartedAt     time.Time  `json:"startedAt"`
	StoppedAt     *time.Time `json:"stoppedAt,omitempty"`
	ExitCode      *int       `json:"exitCode,omitempty"`
	Forced        bool       `json:"forced"`
}

// CommandRecord is one operator command accepted by the process input stream.
type CommandRecord struct {
	RunID   string    `json:"runId"`
	At      time.Time `json:"at"`
	Command string    `json:"command"`
}

// SetupStatus summarizes what is missing before the server can start.
type SetupStatus struct {
	MissingJar    bool   `json:"missingJar"`
	EULAAccepted  bool   `json:"eulaAccepted"`
	ServerDir     string `json:"serverDir"`
	JarPath       string `json:"jarPath"`
	ServerType    string `json:"serverType"`
	ServerVersion string `json:"serverVersion"`
	ServerBuild   string `json:"serverBuild"`
}

// HostInfo describes where the panel and the game server can be reached.
type HostInfo struct {
	Host              string   `json:"host"`
	Port              int      `json:"port"`
	ServerPort        string   `json:"serverPort"`
	LocalIPs          []string `json:"localIps"`
	ExternalIP        string   `json:"externalIp,omitempty"`
	ConfiguredVersion string   `json:"configuredVersion,omitempty"`
	RunningVersion    string   `json:"runningVersion,omitempty"`
}
