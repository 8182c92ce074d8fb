// Package transport reads log and record files from remote game servers
// over SFTP. Every operation opens its own short-lived connection and
// releases it on all exit paths, so a stuck session never outlives one
// call. Host keys are deliberately not verified: game hosting providers
// rotate machines freely and players only hand us read-only accounts.
package transport

import (
	"errors"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	"github.com/zonewatch/zonewatch/internal/domain"
)

// Client opens per-call SFTP sessions to game servers.
type Client struct {
	dialTimeout time.Duration
	log         zerolog.Logger
}

// NewClient creates a transport client. dialTimeout bounds the TCP+SSH
// handshake of every call.
func NewClient(dialTimeout time.Duration, log zerolog.Logger) *Client {
	if dialTimeout == 0 {
		dialTimeout = 15 * time.Second
	}
	return &Client{dialTimeout: dialTimeout, log: log}
}

// withConn dials, runs fn against the SFTP session, and closes everything
// regardless of which step failed.
func (c *Client) withConn(srv *domain.ServerConnection, op string, fn func(*sftp.Client) error) error {
	cfg := &ssh.ClientConfig{
		User:            srv.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(srv.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.dialTimeout,
	}

	conn, err := ssh.Dial("tcp", srv.Addr(), cfg)
	if err != nil {
		werr := wrap(op, "", err)
		c.log.Debug().Err(werr).Str("addr", srv.Addr()).Str("op", op).Msg("session open failed")
		return werr
	}
	defer conn.Close()

	sess, err := sftp.NewClient(conn)
	if err != nil {
		werr := wrap(op, "", err)
		c.log.Debug().Err(werr).Str("addr", srv.Addr()).Str("op", op).Msg("session open failed")
		return werr
	}
	defer sess.Close()

	c.log.Debug().Str("addr", srv.Addr()).Str("op", op).Msg("session opened")
	return fn(sess)
}

// ListFiles returns the plain-file names directly under dir, creating the
// directory if it does not exist yet (fresh servers have no logs).
func (c *Client) ListFiles(srv *domain.ServerConnection, dir string) ([]string, error) {
	var names []string
	err := c.withConn(srv, "list", func(sess *sftp.Client) error {
		entries, err := sess.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				if mkErr := sess.MkdirAll(dir); mkErr != nil {
					return wrap("mkdir", dir, mkErr)
				}
				return nil
			}
			return wrap("list", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			names = append(names, e.Name())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// FindByExtension walks root recursively and returns paths, relative to
// root, of files whose extension matches ext case-insensitively.
// ext includes the dot, e.g. ".csv".
func (c *Client) FindByExtension(srv *domain.ServerConnection, root, ext string) ([]string, error) {
	ext = strings.ToLower(ext)
	var matches []string
	err := c.withConn(srv, "find", func(sess *sftp.Client) error {
		walker := sess.Walk(root)
		for walker.Step() {
			if err := walker.Err(); err != nil {
				return wrap("find", walker.Path(), err)
			}
			if walker.Stat().IsDir() {
				continue
			}
			p := walker.Path()
			if strings.ToLower(path.Ext(p)) != ext {
				continue
			}
			rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// ReadFile returns the whole remote file as UTF-8 text.
func (c *Client) ReadFile(srv *domain.ServerConnection, p string) (string, error) {
	var content string
	err := c.withConn(srv, "read", func(sess *sftp.Client) error {
		f, err := sess.Open(p)
		if err != nil {
			return wrap("read", p, err)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return wrap("read", p, err)
		}
		content = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

// ReadLinesAfter returns the lines of p whose zero-based index is strictly
// greater than lastLine. Reading has no side effect on the remote file, so
// repeated calls with the same lastLine return the same lines.
func (c *Client) ReadLinesAfter(srv *domain.ServerConnection, p string, lastLine int64) ([]string, error) {
	content, err := c.ReadFile(srv, p)
	if err != nil {
		return nil, err
	}
	return SplitLinesAfter(content, lastLine), nil
}

// SplitLinesAfter splits content on newlines and keeps lines with index
// > lastLine. A trailing newline does not produce a phantom empty line.
func SplitLinesAfter(content string, lastLine int64) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if lastLine < domain.NoLine {
		lastLine = domain.NoLine
	}
	start := lastLine + 1
	if start >= int64(len(lines)) {
		return nil
	}
	return lines[start:]
}
