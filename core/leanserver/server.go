// Package leanserver is a synchronous client for the interactive Lean
// server. The server is spawned as a child process speaking
// line-delimited JSON on stdin/stdout; every request carries a sequence
// number and the client blocks until the matching response arrives.
// Asynchronous chatter (message batches, task progress) is skipped.
//
// The client exposes exactly the query surface the parser needs: sync a
// file, then ask for the verifier state at (file, line, column) points.
package leanserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/Lectern/core/errors"
	"github.com/FocuswithJustin/Lectern/internal/logging"
)

// request is one JSON line sent to the Lean server.
type request struct {
	Request  string `json:"request"`
	SeqNum   int    `json:"seq_num"`
	FileName string `json:"file_name,omitempty"`
	Content  string `json:"content,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

// response is one JSON line received from the Lean server. Responses
// without a matching seq_num are asynchronous notifications.
type response struct {
	Response string  `json:"response"`
	SeqNum   int     `json:"seq_num,omitempty"`
	Message  string  `json:"message,omitempty"`
	Record   *record `json:"record,omitempty"`
}

// record carries the payload of an "info" response. Only the state is
// of interest here; the server reports more fields that are ignored.
type record struct {
	State string `json:"state"`
}

// Server is a running Lean server session. It is not safe for
// concurrent use: the parse loop that owns it is fully sequential.
type Server struct {
	session string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	out     *bufio.Scanner
	seq     int
}

// Start launches `lean --server` using the given executable, with
// LEAN_PATH set to leanPath when non-empty. Close must be called to
// reap the child process.
func Start(leanExec, leanPath string) (*Server, error) {
	cmd := exec.Command(leanExec, "--server")
	cmd.Env = os.Environ()
	if leanPath != "" {
		cmd.Env = append(cmd.Env, "LEAN_PATH="+leanPath)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open stdout pipe")
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", leanExec)
	}

	s := newServer(stdin, stdout)
	s.cmd = cmd
	logging.VerifierEvent("started", s.session, "exec", leanExec, "pid", cmd.Process.Pid)
	return s, nil
}

// newServer wires a client over arbitrary pipes. Split out from Start
// so tests can drive the protocol without a Lean binary.
func newServer(in io.WriteCloser, out io.Reader) *Server {
	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Server{
		session: uuid.New().String(),
		stdin:   in,
		out:     scanner,
	}
}

// Session returns the unique id of this verifier session.
func (s *Server) Session() string {
	return s.session
}

// SyncFile loads the file into the server session. Queries against a
// file are only meaningful after it has been synced.
func (s *Server) SyncFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.NewIO("read", path, err)
	}
	_, err = s.roundTrip(&request{
		Request:  "sync",
		FileName: path,
		Content:  string(content),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to sync %s", path)
	}
	logging.VerifierEvent("synced", s.session, "file", path)
	return nil
}

// Info queries the verifier state at a source position. An empty state
// is a legitimate answer; failures are reported as errors and never as
// an empty state.
func (s *Server) Info(file string, line, column int) (string, error) {
	start := time.Now()
	resp, err := s.roundTrip(&request{
		Request:  "info",
		FileName: file,
		Line:     line,
		Column:   column,
	})
	if err != nil {
		return "", err
	}
	logging.VerifierQuery(file, line, column, time.Since(start))
	if resp.Record == nil {
		return "", nil
	}
	return resp.Record.State, nil
}

// roundTrip sends one request and blocks until its response arrives,
// skipping asynchronous notifications in between.
func (s *Server) roundTrip(req *request) (*response, error) {
	s.seq++
	req.SeqNum = s.seq

	data, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request")
	}
	data = append(data, '\n')
	if _, err := s.stdin.Write(data); err != nil {
		return nil, errors.Wrap(err, "failed to write request")
	}

	for s.out.Scan() {
		var resp response
		if err := json.Unmarshal(s.out.Bytes(), &resp); err != nil {
			return nil, errors.Wrap(err, "failed to decode response")
		}
		if resp.SeqNum != req.SeqNum {
			// Notification or a stale answer; not ours.
			logging.Debug("verifier_notification", "session", s.session, "response", resp.Response)
			continue
		}
		if resp.Response == "error" {
			return nil, fmt.Errorf("verifier error: %s", resp.Message)
		}
		return &resp, nil
	}
	if err := s.out.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	return nil, fmt.Errorf("verifier closed the connection")
}

// Close shuts down the session and reaps the child process.
func (s *Server) Close() error {
	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.cmd == nil {
		return nil
	}
	err := s.cmd.Wait()
	logging.VerifierEvent("stopped", s.session)
	if err != nil {
		// Killing the server on close is expected to surface an exit
		// error; only report genuinely abnormal failures.
		if _, ok := err.(*exec.ExitError); ok {
			return nil
		}
		return errors.Wrap(err, "failed to stop verifier")
	}
	return nil
}
