package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Cmd is the command byte carried in every packet.
type Cmd uint8

const (
	CmdGet Cmd = 0 // request value by key
	CmdCat Cmd = 1 // request the raw dictionary
	CmdMD5 Cmd = 2 // compare the dictionary digest
	CmdAck Cmd = 3
	CmdEnd Cmd = 4 // end of conversation
	CmdSet Cmd = 5 // start setting a key
	CmdDel Cmd = 6
	CmdDat Cmd = 7 // value data following CmdSet
)

func (c Cmd) String() string {
	switch c {
	case CmdGet:
		return "GET"
	case CmdCat:
		return "CAT"
	case CmdMD5:
		return "MD5"
	case CmdAck:
		return "ACK"
	case CmdEnd:
		return "END"
	case CmdSet:
		return "SET"
	case CmdDel:
		return "DEL"
	case CmdDat:
		return "DAT"
	default:
		return "UNKNOWN"
	}
}

// ParseCmd resolves a command by name, as printed by Cmd.String, or by number.
func ParseCmd(s string) (Cmd, error) {
	for c := CmdGet; c <= CmdDat; c++ {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("protocol: unknown command %q", s)
	}
	return Cmd(n), nil
}
