package commands

import "github.com/disgoorg/disgo/discord"

var Commands = []discord.ApplicationCommandCreate{
	OpenPack,
	ShowCards,
	Trade,
	Trades,
	Version,
}
