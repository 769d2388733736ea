package cred

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"os/user"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// DefaultPAMHelper is the helper executable started by pam checkers.
	DefaultPAMHelper = "/usr/libexec/swad_pam"
	pamHelperArgv0   = "swad: pam helper"
)

var errHelperProtocol = errors.New("pam helper protocol violation")

// pamHelper is one running helper process. Requests are serialized; a
// failed exchange kills the process and the next request restarts it.
type pamHelper struct {
	path   string
	args   []string
	logger *zap.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	refs   int
}

var helpers = struct {
	sync.Mutex
	byPath map[string]*pamHelper
}{byPath: make(map[string]*pamHelper)}

func acquireHelper(path string, args []string, logger *zap.Logger) *pamHelper {
	helpers.Lock()
	defer helpers.Unlock()
	h, ok := helpers.byPath[path]
	if !ok {
		h = &pamHelper{path: path, args: args, logger: logger}
		helpers.byPath[path] = h
	}
	h.refs++
	return h
}

func releaseHelper(h *pamHelper) {
	helpers.Lock()
	h.refs--
	last := h.refs == 0
	if last {
		delete(helpers.byPath, h.path)
	}
	helpers.Unlock()

	if last {
		h.mu.Lock()
		h.stopLocked()
		h.mu.Unlock()
	}
}

func (h *pamHelper) startLocked() error {
	cmd := exec.Command(h.path, h.args...)
	cmd.Args[0] = pamHelperArgv0
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start pam helper: %w", err)
	}
	h.cmd, h.stdin, h.stdout = cmd, stdin, bufio.NewReader(stdout)
	h.logger.Debug("pam helper started", zap.Int("pid", cmd.Process.Pid))
	return nil
}

func (h *pamHelper) stopLocked() {
	if h.cmd == nil {
		return
	}
	_ = h.stdin.Close()
	_ = h.cmd.Process.Kill()
	_ = h.cmd.Wait()
	h.cmd, h.stdin, h.stdout = nil, nil, nil
}

func (h *pamHelper) readLine() (string, error) {
	line, err := h.stdout.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// exchange runs one authentication conversation.
func (h *pamHelper) exchange(ctx context.Context, service, username, password string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cmd == nil {
		if err := h.startLocked(); err != nil {
			return false, err
		}
	}

	// A cancelled request kills the helper so blocked pipe reads return.
	cmd := h.cmd
	stop := context.AfterFunc(ctx, func() { _ = cmd.Process.Kill() })

	ok, err := h.converse(service, username, password)
	killed := !stop()
	if err != nil || killed {
		h.stopLocked()
		if killed {
			return false, ctx.Err()
		}
		return false, err
	}
	return ok, nil
}

func (h *pamHelper) converse(service, username, password string) (bool, error) {
	h.logger.Debug("pam request", zap.String("service", service), zap.String("username", username))
	if _, err := fmt.Fprintf(h.stdin, "%s:%s\n", service, username); err != nil {
		return false, err
	}
	reply, err := h.readLine()
	if err != nil {
		return false, err
	}
	if reply == "P" {
		if _, err := fmt.Fprintf(h.stdin, "%s\n", password); err != nil {
			return false, err
		}
		if reply, err = h.readLine(); err != nil {
			return false, err
		}
	}
	switch reply {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("%w: reply %q", errHelperProtocol, reply)
	}
}

// PAM checks credentials through the PAM helper process for one service.
type PAM struct {
	service string
	helper  *pamHelper
	lookup  func(string) (string, bool)

	closeOnce sync.Once
}

// NewPAM returns a checker for service. Checkers sharing a helper path
// share one helper process.
func NewPAM(service string, opts Options) (*PAM, error) {
	if service == "" || strings.ContainsAny(service, ":\n") {
		return nil, fmt.Errorf("%w: invalid pam service %q", ErrArgs, service)
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	logger := opts.Logger.Named("pam")
	return &PAM{
		service: service,
		helper:  acquireHelper(opts.PAMHelper, opts.PAMHelperArgs, logger),
		lookup:  opts.LookupGECOS,
	}, nil
}

// Check asks the helper to authenticate username. On success the real name
// is taken from the account's GECOS field.
func (p *PAM) Check(ctx context.Context, username, password string) (string, bool, error) {
	// The line protocol cannot carry these.
	if username == "" || strings.ContainsAny(username, ":\n") || strings.Contains(password, "\n") {
		return "", false, nil
	}
	ok, err := p.helper.exchange(ctx, p.service, username, password)
	if err != nil || !ok {
		return "", false, err
	}
	var realname string
	if gecos, found := p.lookup(username); found {
		realname = gecosName(gecos, username)
	}
	return realname, true, nil
}

// Close drops this checker's reference to the helper; the last reference
// stops the process.
func (p *PAM) Close() error {
	p.closeOnce.Do(func() { releaseHelper(p.helper) })
	return nil
}

func lookupGECOS(username string) (string, bool) {
	u, err := user.Lookup(username)
	if err != nil {
		return "", false
	}
	return u.Name, u.Name != ""
}

// gecosName cuts gecos at the first comma and replaces the first '&' with
// the username, first letter upper-cased.
func gecosName(gecos, username string) string {
	if i := strings.IndexByte(gecos, ','); i >= 0 {
		gecos = gecos[:i]
	}
	i := strings.IndexByte(gecos, '&')
	if i < 0 || username == "" {
		return gecos
	}
	r, size := utf8.DecodeRuneInString(username)
	return gecos[:i] + string(unicode.ToUpper(r)) + username[size:] + gecos[i+1:]
}
