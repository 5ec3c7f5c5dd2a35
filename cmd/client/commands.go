package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eriantys/eriantys-server-go/internal/game/students"
	"github.com/eriantys/eriantys-server-go/internal/protocol"
)

type argKind int

const (
	noArgs argKind = iota
	oneWord
	oneInt
	intList
	colorList
)

type verb struct {
	kind protocol.CommandKind
	args argKind
	help string
}

var verbs = map[string]verb{
	"join":      {protocol.CommandJoinLobby, oneWord, "join <rule>"},
	"leave":     {protocol.CommandLeaveLobby, noArgs, "leave"},
	"team":      {protocol.CommandSelectTeam, oneWord, "team <white|black|grey>"},
	"wizard":    {protocol.CommandSelectWizard, oneWord, "wizard <name>"},
	"ready":     {protocol.CommandReady, noArgs, "ready"},
	"unready":   {protocol.CommandNotReady, noArgs, "unready"},
	"start":     {protocol.CommandStartGame, noArgs, "start"},
	"assistant": {protocol.CommandPlayAssistant, oneInt, "assistant <priority>"},
	"select":    {protocol.CommandSelectStudent, oneInt, "select <entrance slot>"},
	"deselect":  {protocol.CommandDeselectStudent, noArgs, "deselect"},
	"hall":      {protocol.CommandPutInHall, noArgs, "hall"},
	"island":    {protocol.CommandPutInIsland, oneInt, "island <island id>"},
	"mn":        {protocol.CommandMoveMN, oneInt, "mn <steps>"},
	"cloud":     {protocol.CommandChooseCloud, oneInt, "cloud <cloud id>"},
	"end":       {protocol.CommandEndTurn, noArgs, "end"},
	"character": {protocol.CommandSelectCharacter, oneInt, "character <card index>"},
	"entrance":  {protocol.CommandSelectEntranceStudents, intList, "entrance <slot>..."},
	"colors":    {protocol.CommandSelectStudentColors, colorList, "colors <color>..."},
	"group":     {protocol.CommandSelectIslandGroup, oneInt, "group <island id>"},
	"oncard":    {protocol.CommandSelectStudentsOnCard, intList, "oncard <position>..."},
	"play":      {protocol.CommandPlayCharacter, noArgs, "play"},
}

// parseLine turns one input line into a command.
func parseLine(line string) (protocol.Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return protocol.Command{}, fmt.Errorf("empty command")
	}
	v, ok := verbs[strings.ToLower(fields[0])]
	if !ok {
		return protocol.Command{}, fmt.Errorf("unknown command %q", fields[0])
	}
	args := fields[1:]
	cmd := protocol.Command{Kind: v.kind}

	switch v.args {
	case noArgs:
		if len(args) != 0 {
			return cmd, fmt.Errorf("usage: %s", v.help)
		}
	case oneWord:
		if len(args) != 1 {
			return cmd, fmt.Errorf("usage: %s", v.help)
		}
		switch v.kind {
		case protocol.CommandJoinLobby:
			cmd.GameRule = strings.ToUpper(args[0])
		case protocol.CommandSelectTeam:
			cmd.Team = args[0]
		case protocol.CommandSelectWizard:
			cmd.Wizard = args[0]
		}
	case oneInt:
		if len(args) != 1 {
			return cmd, fmt.Errorf("usage: %s", v.help)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return cmd, fmt.Errorf("usage: %s", v.help)
		}
		switch v.kind {
		case protocol.CommandPlayAssistant:
			cmd.Priority = n
		case protocol.CommandSelectStudent:
			cmd.Slot = n
		case protocol.CommandPutInIsland, protocol.CommandSelectIslandGroup:
			cmd.IslandID = n
		case protocol.CommandMoveMN:
			cmd.Steps = n
		case protocol.CommandChooseCloud:
			cmd.CloudID = n
		case protocol.CommandSelectCharacter:
			cmd.Character = n
		}
	case intList:
		nums := make([]int, 0, len(args))
		for _, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil {
				return cmd, fmt.Errorf("usage: %s", v.help)
			}
			nums = append(nums, n)
		}
		if v.kind == protocol.CommandSelectEntranceStudents {
			cmd.Slots = nums
		} else {
			cmd.Positions = nums
		}
	case colorList:
		for _, a := range args {
			c, err := students.ParseColor(a)
			if err != nil {
				return cmd, err
			}
			cmd.Colors = append(cmd.Colors, c)
		}
	}
	return cmd, nil
}

// usageOf returns the input syntax that produces kind.
func usageOf(kind protocol.CommandKind) string {
	for _, v := range verbs {
		if v.kind == kind {
			return v.help
		}
	}
	return string(kind)
}
