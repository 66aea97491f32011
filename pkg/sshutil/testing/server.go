package testing

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// ServerConfig configures an in-process SSH server.
type ServerConfig struct {
	User     string
	Password string
	// Home is the user's home directory. Exec commands run there with
	// HOME set to it, and public-key logins are checked against
	// Home/.ssh/authorized_keys.
	Home string
}

// Server is a real SSH server on 127.0.0.1 with password and public-key
// auth, exec requests run through the local /bin/sh, and the "sftp"
// subsystem served by pkg/sftp against the local filesystem.
type Server struct {
	Host    string
	Port    int
	HostKey ssh.PublicKey

	cfg      ServerConfig
	listener net.Listener
	done     chan struct{}

	mu             sync.Mutex
	conns          []net.Conn
	commands       []string
	passwordLogins int
	keyLogins      int
}

// NewServer starts a server. Call Close when done.
func NewServer(cfg ServerConfig) (*Server, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}
	hostSigner, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, fmt.Errorf("host signer: %w", err)
	}

	s := &Server{
		HostKey: hostSigner.PublicKey(),
		cfg:     cfg,
		done:    make(chan struct{}),
	}

	config := &ssh.ServerConfig{
		PasswordCallback: func(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if conn.User() == cfg.User && string(password) == cfg.Password {
				s.mu.Lock()
				s.passwordLogins++
				s.mu.Unlock()
				return &ssh.Permissions{}, nil
			}
			return nil, errors.New("password rejected")
		},
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if conn.User() == cfg.User && s.authorized(key) {
				s.mu.Lock()
				s.keyLogins++
				s.mu.Unlock()
				return &ssh.Permissions{}, nil
			}
			return nil, errors.New("public key rejected")
		},
	}
	config.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	s.listener = listener

	host, portStr, _ := net.SplitHostPort(listener.Addr().String())
	s.Host = host
	s.Port, _ = strconv.Atoi(portStr)

	go s.acceptLoop(config)
	return s, nil
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Commands returns every exec command received, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// PasswordLogins returns the number of successful password logins.
func (s *Server) PasswordLogins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passwordLogins
}

// KeyLogins returns the number of successful public-key logins.
func (s *Server) KeyLogins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyLogins
}

// Close stops the listener and drops every open connection.
func (s *Server) Close() error {
	err := s.listener.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	<-s.done
	return err
}

func (s *Server) acceptLoop(config *ssh.ServerConfig) {
	defer close(s.done)
	for {
		netConn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, netConn)
		s.mu.Unlock()
		go s.handleConn(netConn, config)
	}
}

func (s *Server) handleConn(netConn net.Conn, config *ssh.ServerConfig) {
	sshConn, chans, reqs, err := ssh.NewServerConn(netConn, config)
	if err != nil {
		netConn.Close()
		return
	}
	defer sshConn.Close()

	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			_ = newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		ch, requests, err := newChan.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, requests)
	}
}

func (s *Server) handleSession(ch ssh.Channel, requests <-chan *ssh.Request) {
	defer ch.Close()

	for req := range requests {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			s.runExec(ch, payload.Command)
			return

		case "subsystem":
			var payload struct{ Name string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil || payload.Name != "sftp" {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			server, err := sftp.NewServer(ch)
			if err != nil {
				return
			}
			_ = server.Serve()
			_ = server.Close()
			return

		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}

func (s *Server) runExec(ch ssh.Channel, command string) {
	s.mu.Lock()
	s.commands = append(s.commands, command)
	s.mu.Unlock()

	var stdout, stderr bytes.Buffer
	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Dir = s.cfg.Home
	cmd.Env = append(os.Environ(), "HOME="+s.cfg.Home)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	status := uint32(0)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			status = uint32(exitErr.ExitCode())
		} else {
			fmt.Fprintf(&stderr, "%v\n", err)
			status = 127
		}
	}

	_, _ = ch.Write(stdout.Bytes())
	_, _ = ch.Stderr().Write(stderr.Bytes())
	_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
}

// authorized reports whether key appears in Home/.ssh/authorized_keys.
func (s *Server) authorized(key ssh.PublicKey) bool {
	data, err := os.ReadFile(filepath.Join(s.cfg.Home, ".ssh", "authorized_keys"))
	if err != nil {
		return false
	}
	want := key.Marshal()
	for len(data) > 0 {
		pub, _, _, rest, err := ssh.ParseAuthorizedKey(data)
		if err != nil {
			return false
		}
		if bytes.Equal(pub.Marshal(), want) {
			return true
		}
		data = rest
	}
	return false
}
