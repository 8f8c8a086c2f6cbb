package imaging

import "image/color"

// userPalette holds one colour per player slot. Index 0 is "no user".
var userPalette = [MaxPlayers + 1]color.NRGBA{
	{R: 0x00, G: 0x00, B: 0x00, A: 0xff},
	{R: 0xff, G: 0x33, B: 0x33, A: 0xff},
	{R: 0x33, G: 0xcc, B: 0x33, A: 0xff},
	{R: 0x33, G: 0x66, B: 0xff, A: 0xff},
	{R: 0xff, G: 0xcc, B: 0x00, A: 0xff},
	{R: 0x00, G: 0xcc, B: 0xcc, A: 0xff},
	{R: 0xcc, G: 0x33, B: 0xcc, A: 0xff},
}

// GetUserColor returns the fixed colour for player id 1..6. Id 0 and ids
// outside the player range return opaque black.
func GetUserColor(id int) color.NRGBA {
	if id <= 0 || id > MaxPlayers {
		return userPalette[0]
	}
	return userPalette[id]
}
