package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/multilocker/pkg/access"
	"github.com/robotalks/multilocker/pkg/env"
	"github.com/robotalks/multilocker/pkg/framework"
	"github.com/robotalks/multilocker/pkg/metrics"
	"github.com/robotalks/multilocker/pkg/roles"
)

// Shell provides ishell backed setup shell for the locker.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *env.Config
	Env    *env.Env
	// Ctx is the parent of every command context.
	Ctx    context.Context
}

const (
	shellKey = "$shell"
	prompt   = "locker > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&InitCmd,
		&IdentifyCmd,
		&AuthCmd,
		&EnrollCmd,
		&DeleteCmd,
		&ClearCmd,
		&LocationsCmd,
		&CountCmd,
		&RolesCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
		Ctx:    context.Background(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Prompt implements access.Prompter.
func (s *Shell) Prompt(p access.Prompt) {
	s.Shell.Println(">>", p)
}

// Command derives the context of a single command. Ctrl-C cancels
// the running command only, the session continues.
func (s *Shell) Command() (context.Context, context.CancelFunc) {
	return framework.SignalContext(s.Ctx)
}

// Setup returns the maintenance operations.
func (s *Shell) Setup() *access.Setup {
	return s.Env.Fingerprint.SetupMode()
}

// Open assembles the locker env with the shell as prompter.
func (s *Shell) Open() error {
	e, err := s.Config.NewEnv(s)
	if err != nil {
		return err
	}
	s.Env = e
	return nil
}

// Close releases the env.
func (s *Shell) Close() error {
	if s.Env == nil {
		return nil
	}
	err := s.Env.Close()
	s.Env = nil
	return err
}

func (s *Shell) print(c *ishell.Context, v interface{}, text string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if s.Interactive {
		s.Shell.Run()
		return nil
	}
	return fmt.Errorf("command expected")
}

func parseRole(c *ishell.Context) (roles.Role, bool) {
	if len(c.Args) < 1 {
		c.Err(fmt.Errorf("role expected"))
		return roles.Unassigned, false
	}
	role, err := roles.ParseRole(c.Args[0])
	if err != nil {
		c.Err(err)
		return roles.Unassigned, false
	}
	return role, true
}

type userInfo struct {
	Role string `json:"role"`
	Slot uint16 `json:"slot"`
}

func infoOf(u access.User) userInfo {
	return userInfo{Role: u.Role.String(), Slot: u.Slot}
}

var (
	// InitCmd handshakes with the sensor.
	InitCmd = ishell.Cmd{
		Name: "init",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.Command()
			defer cancel()
			if !s.Env.Fingerprint.Init(ctx) {
				c.Err(fmt.Errorf("sensor not ready"))
				return
			}
			c.Println("OK")
		},
	}

	// IdentifyCmd identifies the finger on the sensor.
	IdentifyCmd = ishell.Cmd{
		Name:    "identify",
		Aliases: []string{"id"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.Command()
			defer cancel()
			user, err := s.Setup().Identify(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			s.print(c, infoOf(user), user.String())
		},
	}

	// AuthCmd authenticates the finger against a role.
	AuthCmd = ishell.Cmd{
		Name: "auth",
		Help: "ROLE",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.Command()
			defer cancel()
			role, ok := parseRole(c)
			if !ok {
				return
			}
			user := access.Nobody
			if !s.Env.Fingerprint.Auth(ctx, &user, role) {
				c.Err(fmt.Errorf("denied"))
				return
			}
			s.print(c, infoOf(user), "granted "+user.String())
		},
	}

	// EnrollCmd registers a new finger.
	EnrollCmd = ishell.Cmd{
		Name:    "enroll",
		Aliases: []string{"register"},
		Help:    "ROLE",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.Command()
			defer cancel()
			role, ok := parseRole(c)
			if !ok {
				return
			}
			user, err := s.Setup().RegisterUser(ctx, role)
			if err != nil {
				c.Err(err)
				return
			}
			s.print(c, infoOf(user), "enrolled "+user.String())
		},
	}

	// DeleteCmd deletes a template.
	DeleteCmd = ishell.Cmd{
		Name:    "delete",
		Aliases: []string{"rm"},
		Help:    "SLOT",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.Command()
			defer cancel()
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("slot expected"))
				return
			}
			slot, err := strconv.ParseUint(c.Args[0], 10, 16)
			if err != nil {
				c.Err(err)
				return
			}
			if err := s.Setup().DeleteSlot(ctx, uint16(slot)); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// ClearCmd clears all templates.
	ClearCmd = ishell.Cmd{
		Name: "clear",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.Command()
			defer cancel()
			if s.Interactive {
				c.Print("Delete ALL templates? [y/N] ")
				if answer := strings.ToLower(strings.TrimSpace(c.ReadLine())); answer != "y" {
					return
				}
			}
			if err := s.Setup().ClearAll(ctx); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// LocationsCmd shows the next free slot of every role.
	LocationsCmd = ishell.Cmd{
		Name:    "locations",
		Aliases: []string{"loc"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			locs := s.Setup().Locations()
			out := make(map[string]uint16, len(locs))
			var lines []string
			for _, e := range s.Setup().Table().Entries() {
				next := locs[e.Role]
				out[e.Role.String()] = next
				lines = append(lines, fmt.Sprintf("%-8s %s next %d, %d free", e.Role, e.Range, next, int(e.Range.Max)+1-int(next)))
			}
			s.print(c, out, strings.Join(lines, "\n"))
		},
	}

	// CountCmd shows the number of stored templates.
	CountCmd = ishell.Cmd{
		Name: "count",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.Command()
			defer cancel()
			n, err := s.Setup().TemplateCount(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			s.print(c, map[string]uint16{"count": n}, strconv.Itoa(int(n)))
		},
	}

	// RolesCmd shows the role table.
	RolesCmd = ishell.Cmd{
		Name: "roles",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			type roleInfo struct {
				Role string `json:"role"`
				Min  uint16 `json:"min"`
				Max  uint16 `json:"max"`
			}
			var infos []roleInfo
			var lines []string
			for _, e := range s.Setup().Table().Entries() {
				infos = append(infos, roleInfo{Role: e.Role.String(), Min: e.Range.Min, Max: e.Range.Max})
				lines = append(lines, fmt.Sprintf("%-8s %s", e.Role, e.Range))
			}
			s.print(c, infos, strings.Join(lines, "\n"))
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(env.NewConfig())
	s.Ctx = ctx
	if err := s.Open(); err != nil {
		glog.Exitf("open locker: %v", err)
	}
	if addr := s.Config.MetricsAddr; addr != "" {
		framework.Go(ctx, func(err error) {
			glog.Errorf("metrics server: %v", err)
		}, framework.RunnableFunc(func(ctx context.Context) error {
			return metrics.Serve(ctx, addr, s.Env.Registry)
		}))
	}
	err := s.Run(flag.Args()...)
	if cerr := s.Close(); cerr != nil {
		glog.Warningf("close: %v", cerr)
	}
	if err != nil {
		glog.Exitf("%v", err)
	}
}
