// Package interactive provides the command shell of lmrt-sim.
package interactive

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/internal/ctrlsim"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/capability"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/commit"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/controller"
	"github.com/STMicroelectronics/ST54-android-packages-apps-Nfc-sub000/pkg/route"
)

// Shell drives a coordinator bound to a simulated controller.
type Shell struct {
	coord *commit.Coordinator
	sim   *ctrlsim.Controller
	dir   *ctrlsim.Directory
	out   io.Writer
	rl    *readline.Instance

	// Execution environments reported by the simulated controller.
	ees map[route.Destination]capability.EEInfo
}

// New creates a shell writing to out. The ees are reported on the next
// discover or notify command.
func New(coord *commit.Coordinator, sim *ctrlsim.Controller, dir *ctrlsim.Directory, out io.Writer, ees ...capability.EEInfo) *Shell {
	s := &Shell{
		coord: coord,
		sim:   sim,
		dir:   dir,
		out:   out,
		ees:   make(map[route.Destination]capability.EEInfo),
	}
	for _, ee := range ees {
		s.ees[ee.ID] = ee
	}
	s.pushEEs()
	return s
}

// NewReadline creates a shell reading commands from a readline prompt.
func NewReadline(coord *commit.Coordinator, sim *ctrlsim.Controller, dir *ctrlsim.Directory, ees ...capability.EEInfo) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "lmrt> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s := New(coord, sim, dir, rl.Stdout(), ees...)
	s.rl = rl
	return s, nil
}

// Run reads commands until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	if s.rl == nil {
		return
	}
	defer s.rl.Close()

	s.printHelp()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
		if !s.Exec(line) {
			cancel()
			return
		}
	}
}

// Exec runs one command line. It returns false when the shell should exit.
func (s *Shell) Exec(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "status", "s":
		s.cmdStatus()
	case "preview", "p":
		s.cmdPreview()
	case "hw":
		s.cmdHardware()
	case "commit", "c":
		s.cmdCommit()
	case "override", "o":
		s.cmdOverride(args)
	case "mute":
		s.cmdMute(args)
	case "secure":
		s.cmdSecure(args)
	case "aid":
		s.cmdAid(args)
	case "ee":
		s.cmdEE(args)
	case "notify", "n":
		s.sim.Notify()
		fmt.Fprintln(s.out, "Notified")
	case "discover":
		s.report(s.coord.Discover())
	case "connect":
		s.cmdConnect(args)
	case "felica":
		s.cmdFelica(args)
	case "enable":
		s.cmdEnable(args)
	case "force":
		s.cmdForce(args)
	case "fail":
		s.cmdFail(args)
	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return false
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Listen-Mode Routing Commands:
  Routing:
    status                     - Show routing state, table and AID entries
    preview                    - Show the table the next commit would push
    hw                         - Show the table active in the controller
    commit                     - Push pending changes
    override <cat> <dest>      - Override a category (dest: host, 0x81, unrouted, unset)
    mute <a|b|f|off>... | none - Set the mute bitmap (off disables discovery)
    secure on|off              - Enable or disable NFC secure mode

  AID Table:
    aid add <hex|default> <dest> [exact|prefix] [power]
    aid rm <hex|default>
    aid clear

  Execution Environments:
    ee <id> <a> <b> <f>        - Set protocols advertised on A/B/F (hex masks)
    ee rm <id>                 - Stop reporting an environment
    notify                     - Report environments to the coordinator
    discover                   - Send a discover request
    connect <logical> <actual> - Map a logical id (actual host = disconnected)
    felica on|off              - Felica-capable card present in the eSE
    enable <id> on|off         - Enable or disable an environment
    force <dest>|off           - Force all routing to one destination

  Fault Injection:
    fail <op> <status>         - Fail the next command of op (e.g. fail SET_TECH_ROUTE REJECTED)

  General:
    help                       - Show this help
    quit                       - Exit

  Categories: aid, iso-dep, t3t, tech-a, tech-b, tech-f, system-code,
              mifare, felica, tech-ab`)
}

func (s *Shell) report(err error) {
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "OK")
}

func (s *Shell) cmdStatus() {
	if err := s.coord.Dump(s.out); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

func (s *Shell) cmdPreview() {
	if _, err := s.coord.Preview().WriteTo(s.out); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

func (s *Shell) cmdHardware() {
	hw := s.sim.Active()
	fmt.Fprintf(s.out, "updates:     %d\n", s.sim.Updates())
	fmt.Fprintf(s.out, "listen tech: %s\n", hw.ListenTech)

	protos := make([]int, 0, len(hw.Protocols))
	for p := range hw.Protocols {
		protos = append(protos, int(p))
	}
	sort.Ints(protos)
	for _, p := range protos {
		fmt.Fprintf(s.out, "proto 0x%02X -> %s\n", p, hw.Protocols[route.ProtocolMask(p)])
	}

	techs := make([]int, 0, len(hw.Techs))
	for t := range hw.Techs {
		techs = append(techs, int(t))
	}
	sort.Ints(techs)
	for _, t := range techs {
		fmt.Fprintf(s.out, "tech  %s -> %s\n", route.TechMask(t), hw.Techs[route.TechMask(t)])
	}

	for sc, dest := range hw.SystemCodes {
		fmt.Fprintf(s.out, "sc    0x%04X -> %s\n", sc, dest)
	}
	for _, k := range hw.AIDKeys() {
		fmt.Fprintf(s.out, "aid   %s\n", hw.AIDs[k])
	}
	if dest, ok := s.sim.Forced(); ok {
		fmt.Fprintf(s.out, "forced -> %s\n", dest)
	}
}

func (s *Shell) cmdCommit() {
	outcome, err := s.coord.Commit()
	if err != nil {
		fmt.Fprintf(s.out, "Commit %s: %v\n", outcome, err)
		return
	}
	fmt.Fprintf(s.out, "Commit %s (state %s)\n", outcome, s.coord.State())
}

func (s *Shell) cmdOverride(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: override <category> <dest|unset>")
		return
	}
	cats, err := route.ParseCategories(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	o := route.Unset
	if !strings.EqualFold(args[1], "unset") {
		dest, err := route.ParseDestination(args[1])
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
		o = route.To(dest)
	}
	for _, c := range cats {
		if err := s.coord.SetOverride(c, o); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
	}
	fmt.Fprintf(s.out, "Override %s = %s (state %s)\n", args[0], o, s.coord.State())
}

func (s *Shell) cmdMute(args []string) {
	if len(args) == 0 {
		fmt.Fprintf(s.out, "Mute: %s\n", s.coord.Mute())
		return
	}
	var b route.MuteBitmap
	for _, a := range args {
		switch strings.ToLower(a) {
		case "a":
			b |= route.MuteTechA
		case "b":
			b |= route.MuteTechB
		case "f":
			b |= route.MuteTechF
		case "off":
			b |= route.MuteDiscoveryDisabled
		case "none":
		default:
			fmt.Fprintf(s.out, "Unknown mute flag: %s\n", a)
			return
		}
	}
	s.coord.SetMuteTechnology(b)
	fmt.Fprintf(s.out, "Mute: %s (state %s)\n", b, s.coord.State())
}

func (s *Shell) cmdSecure(args []string) {
	on, ok := parseOnOff(args)
	if !ok {
		fmt.Fprintln(s.out, "Usage: secure on|off")
		return
	}
	s.coord.SetNfcSecure(on)
	fmt.Fprintf(s.out, "Secure: %t (state %s)\n", on, s.coord.State())
}

func (s *Shell) cmdAid(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(s.out, "Usage: aid add|rm|clear ...")
		return
	}
	switch strings.ToLower(args[0]) {
	case "add":
		if len(args) < 3 {
			fmt.Fprintln(s.out, "Usage: aid add <hex|default> <dest> [exact|prefix] [power]")
			return
		}
		aid, err := parseAID(args[1])
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
		dest, err := route.ParseDestination(args[2])
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
		match := route.MatchExact
		if len(args) > 3 && strings.EqualFold(args[3], "prefix") {
			match = route.MatchPrefix
		}
		var power route.PowerState
		if len(args) > 4 {
			v, err := strconv.ParseUint(args[4], 0, 8)
			if err != nil {
				fmt.Fprintf(s.out, "Invalid power: %v\n", err)
				return
			}
			power = route.PowerState(v)
		}
		s.report(s.coord.AddAidRouting(aid, dest, match, power))
	case "rm", "remove":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: aid rm <hex|default>")
			return
		}
		aid, err := parseAID(args[1])
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
		s.report(s.coord.RemoveAidRouting(aid))
	case "clear":
		s.report(s.coord.ClearAidTable())
	default:
		fmt.Fprintf(s.out, "Unknown aid command: %s\n", args[0])
	}
}

func (s *Shell) cmdEE(args []string) {
	if len(args) == 0 {
		for _, ee := range s.coord.Capabilities().EEs() {
			fmt.Fprintf(s.out, "  %s\n", ee)
		}
		return
	}
	if strings.EqualFold(args[0], "rm") {
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage: ee rm <id>")
			return
		}
		id, err := route.ParseDestination(args[1])
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
		delete(s.ees, id)
		s.pushEEs()
		fmt.Fprintf(s.out, "EE %s removed (use 'notify' to report)\n", id)
		return
	}
	if len(args) < 4 {
		fmt.Fprintln(s.out, "Usage: ee <id> <a> <b> <f>")
		return
	}
	id, err := route.ParseDestination(args[0])
	if err != nil || !id.IsOffHost() {
		fmt.Fprintf(s.out, "Invalid execution environment id: %s\n", args[0])
		return
	}
	var masks [3]route.ProtocolMask
	for i, a := range args[1:4] {
		v, err := strconv.ParseUint(a, 0, 8)
		if err != nil {
			fmt.Fprintf(s.out, "Invalid protocol mask: %s\n", a)
			return
		}
		masks[i] = route.ProtocolMask(v)
	}
	s.ees[id] = capability.EEInfo{ID: id, TechA: masks[0], TechB: masks[1], TechF: masks[2]}
	s.pushEEs()
	fmt.Fprintf(s.out, "EE %s set (use 'notify' to report)\n", id)
}

func (s *Shell) pushEEs() {
	ees := make([]capability.EEInfo, 0, len(s.ees))
	for _, ee := range s.ees {
		ees = append(ees, ee)
	}
	s.sim.SetEEs(ees...)
}

func (s *Shell) cmdConnect(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: connect <logical> <actual>")
		return
	}
	logical, err := route.ParseDestination(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	actual, err := route.ParseDestination(args[1])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.dir.Connect(logical, actual)
	fmt.Fprintf(s.out, "%s -> %s\n", logical, actual)
}

func (s *Shell) cmdFelica(args []string) {
	on, ok := parseOnOff(args)
	if !ok {
		fmt.Fprintln(s.out, "Usage: felica on|off")
		return
	}
	s.dir.SetFelicaCard(on)
	fmt.Fprintf(s.out, "Felica card present: %t\n", on)
}

func (s *Shell) cmdEnable(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: enable <id> on|off")
		return
	}
	id, err := route.ParseDestination(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	on, ok := parseOnOff(args[1:])
	if !ok {
		fmt.Fprintln(s.out, "Usage: enable <id> on|off")
		return
	}
	s.report(s.coord.EnableExecutionEnvironment(id, on))
}

func (s *Shell) cmdForce(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: force <dest>|off")
		return
	}
	if strings.EqualFold(args[0], "off") {
		s.report(s.coord.ClearForceRouting())
		return
	}
	dest, err := route.ParseDestination(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.report(s.coord.ForceRouting(dest))
}

func (s *Shell) cmdFail(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: fail <op> <status>")
		return
	}
	op, ok := parseOp(args[0])
	if !ok {
		fmt.Fprintf(s.out, "Unknown operation: %s\n", args[0])
		return
	}
	status, ok := parseStatus(args[1])
	if !ok {
		fmt.Fprintf(s.out, "Unknown status: %s\n", args[1])
		return
	}
	s.sim.FailNext(op, status)
	fmt.Fprintf(s.out, "Next %s completes with %s\n", op, status)
}

func parseOnOff(args []string) (bool, bool) {
	if len(args) < 1 {
		return false, false
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		return true, true
	case "off", "false", "0":
		return false, true
	}
	return false, false
}

// parseAID accepts hex digits or "default" for the zero-length pattern.
func parseAID(s string) ([]byte, error) {
	if strings.EqualFold(s, "default") {
		return nil, nil
	}
	return hex.DecodeString(strings.TrimPrefix(strings.ToLower(s), "0x"))
}

func parseOp(s string) (controller.OpKind, bool) {
	for op := controller.OpModeSet; op <= controller.OpRemoveSystemCode; op++ {
		if strings.EqualFold(op.String(), s) {
			return op, true
		}
	}
	return 0, false
}

func parseStatus(s string) (controller.Status, bool) {
	for _, st := range []controller.Status{controller.StatusOK, controller.StatusFailed, controller.StatusNotSupported, controller.StatusRejected} {
		if strings.EqualFold(st.String(), s) {
			return st, true
		}
	}
	return 0, false
}
