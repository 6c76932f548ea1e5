package terminal

type commandGroup uint8

const (
	otherCmds commandGroup = iota
	decodeCmds
	navCmds
)

type commandGroupDescription struct {
	description string
	group       commandGroup
}

var commandGroupDescriptions = []commandGroupDescription{
	{"Decoding instructions", decodeCmds},
	{"Moving around the image", navCmds},
	{"Other commands", otherCmds},
}
