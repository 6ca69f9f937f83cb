package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/thruflo/rain/internal/emulator"
	"github.com/thruflo/rain/internal/vm"
)

// CommandKind identifies a command line command.
type CommandKind int

const (
	CmdPC CommandKind = iota
	CmdRegister
	CmdPoke
	CmdLoad
	CmdName
	CmdSave
	CmdQuit
)

// Command is a parsed command line.
type Command struct {
	Kind  CommandKind
	Reg   int
	Addr  uint64
	Value uint64
	Arg   string // path for load, text for name
}

// ErrEmptyCommand is returned for a blank command line.
var ErrEmptyCommand = errors.New("empty command")

// ParseCommand parses one command line:
//
//	pc <hex>
//	x<N> <hex>
//	poke <addr> <byte>
//	load <path>
//	name <text>
//	save
//	q | quit
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}
	verb, args := fields[0], fields[1:]

	switch {
	case verb == "pc":
		v, err := oneHex(verb, args)
		return Command{Kind: CmdPC, Value: v}, err

	case verb == "poke":
		if len(args) != 2 {
			return Command{}, fmt.Errorf("usage: poke <addr> <byte>")
		}
		addr, err := vm.ParseHex(args[0])
		if err != nil {
			return Command{}, err
		}
		v, err := vm.ParseHex(args[1])
		if err != nil {
			return Command{}, err
		}
		if v > 0xff {
			return Command{}, fmt.Errorf("byte value %s out of range", args[1])
		}
		return Command{Kind: CmdPoke, Addr: addr, Value: v}, nil

	case verb == "load":
		if len(args) == 0 {
			return Command{}, fmt.Errorf("usage: load <path>")
		}
		return Command{Kind: CmdLoad, Arg: strings.Join(args, " ")}, nil

	case verb == "name":
		// Keep the user's spacing after the verb.
		text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "name"))
		return Command{Kind: CmdName, Arg: text}, nil

	case verb == "save" || verb == "w":
		return Command{Kind: CmdSave}, nil

	case verb == "q" || verb == "quit":
		return Command{Kind: CmdQuit}, nil

	case strings.HasPrefix(verb, "x"):
		reg, err := strconv.Atoi(verb[1:])
		if err != nil || reg < 0 || reg >= vm.NumRegisters {
			return Command{}, fmt.Errorf("unknown register %q", verb)
		}
		v, err := oneHex(verb, args)
		return Command{Kind: CmdRegister, Reg: reg, Value: v}, err
	}

	return Command{}, fmt.Errorf("unknown command %q", verb)
}

func oneHex(verb string, args []string) (uint64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s <hex>", verb)
	}
	return vm.ParseHex(args[0])
}

// loadImage reads a memory image; tests replace it.
var loadImage = vm.LoadImage

// ErrNotApplied is returned by Apply for commands the editor runs itself.
var ErrNotApplied = errors.New("command is run by the editor")

// Apply runs cmd against s and returns a short confirmation. CmdQuit and
// CmdLoad are left to the caller and return ErrNotApplied.
func Apply(s *emulator.Session, cmd Command) (string, error) {
	switch cmd.Kind {
	case CmdPC:
		s.SetPC(cmd.Value)
		return "pc = " + vm.FormatHex(cmd.Value), nil

	case CmdRegister:
		if err := s.SetRegister(cmd.Reg, cmd.Value); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s", vm.RegisterName(cmd.Reg), vm.FormatHex(cmd.Value)), nil

	case CmdPoke:
		if !s.Poke(cmd.Addr, byte(cmd.Value)) {
			return "", fmt.Errorf("address %#x outside memory (%d bytes)", cmd.Addr, s.MemorySize())
		}
		return fmt.Sprintf("[%#x] = %#02x", cmd.Addr, cmd.Value), nil

	case CmdName:
		s.Rename(cmd.Arg)
		if cmd.Arg == "" {
			return "name cleared", nil
		}
		return "renamed to " + cmd.Arg, nil

	case CmdSave:
		s.SyncNow()
		return "sync queued", nil
	}
	return "", ErrNotApplied
}
