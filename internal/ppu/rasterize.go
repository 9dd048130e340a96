package ppu

// tileAttr is the parsed CGB background/window tile-map attribute byte
// (stored in VRAM bank 1 at the same offset as the tile index in bank 0).
type tileAttr struct {
	palette  uint8
	bank     uint8
	xFlip    bool
	yFlip    bool
	priority bool
}

func (p *PPU) readTileAttr(mapOffset uint16) tileAttr {
	if !p.cgb {
		return tileAttr{}
	}
	b := p.vram[1][mapOffset]
	return tileAttr{
		palette:  b & 0x07,
		bank:     (b >> 3) & 0x01,
		xFlip:    b&0x20 != 0,
		yFlip:    b&0x40 != 0,
		priority: b&0x80 != 0,
	}
}

// tileDataOffset resolves a tile index to its byte offset within a VRAM
// bank, honoring LCDC.4's signed/unsigned addressing mode.
func tileDataOffset(lcdc, tileIndex uint8) uint16 {
	if lcdc&0x10 != 0 {
		return uint16(tileIndex) * 16
	}
	return uint16(0x1000 + int32(int8(tileIndex))*16)
}

// tileRow returns the two bitplane bytes for one row of a tile.
func (p *PPU) tileRow(bank uint8, dataOffset uint16, rowInTile uint8, yFlip bool) (lo, hi uint8) {
	row := rowInTile
	if yFlip {
		row = 7 - row
	}
	off := dataOffset + uint16(row)*2
	return p.vram[bank][off], p.vram[bank][off+1]
}

func colorIndexAt(lo, hi uint8, bit uint8, xFlip bool) uint8 {
	b := bit
	if !xFlip {
		b = 7 - bit
	}
	lowBit := (lo >> b) & 1
	highBit := (hi >> b) & 1
	return lowBit | highBit<<1
}

func (p *PPU) drawScanline() {
	line := p.ly
	windowDrawnThisLine := false

	bgEnabled := p.cgb || p.lcdc&0x01 != 0
	windowEnabled := p.lcdc&0x20 != 0 && p.wy <= line

	bgMapBase := uint16(0x9800)
	if p.lcdc&0x08 != 0 {
		bgMapBase = 0x9C00
	}
	winMapBase := uint16(0x9800)
	if p.lcdc&0x40 != 0 {
		winMapBase = 0x9C00
	}

	for x := 0; x < ScreenWidth; x++ {
		useWindow := windowEnabled && int(p.wx)-7 <= x

		var mapBase uint16
		var pixelX, pixelY uint8
		if useWindow {
			mapBase = winMapBase
			pixelX = uint8(x - (int(p.wx) - 7))
			pixelY = p.windowLine
			windowDrawnThisLine = true
		} else {
			mapBase = bgMapBase
			pixelX = uint8(int(p.scx) + x)
			pixelY = p.scy + line
		}

		tileCol := uint16(pixelX / 8)
		tileRowIdx := uint16(pixelY / 8)
		mapOffset := mapBase - 0x8000 + tileRowIdx*32 + tileCol

		tileIndex := p.vram[0][mapOffset]
		attr := p.readTileAttr(mapOffset)

		var colorIndex uint8
		if bgEnabled {
			dataOffset := tileDataOffset(p.lcdc, tileIndex)
			lo, hi := p.tileRow(attr.bank, dataOffset, pixelY%8, attr.yFlip)
			colorIndex = colorIndexAt(lo, hi, pixelX%8, attr.xFlip)
		}

		p.bgColorIndex[x] = colorIndex
		p.bgPriority[x] = attr.priority

		var color uint32
		if p.cgb {
			color = p.bgColorFromCGBPalette(attr.palette, colorIndex)
		} else {
			color = dmgColor(p.bgp, colorIndex)
		}
		p.framebuffer[int(line)*ScreenWidth+x] = color
	}

	if windowDrawnThisLine {
		p.windowLine++
	}

	if p.lcdc&0x02 != 0 {
		p.drawSprites(line)
	}
}

type spriteEntry struct {
	oamIndex int
	y, x     uint8
	tile     uint8
	attr     uint8
}

func (p *PPU) drawSprites(line uint8) {
	tall := p.lcdc&0x04 != 0
	height := uint8(8)
	if tall {
		height = 16
	}

	var candidates []spriteEntry
	for i := 0; i < 40 && len(candidates) < 10; i++ {
		base := i * 4
		spriteY := p.oam[base]
		top := int(spriteY) - 16
		if int(line) < top || int(line) >= top+int(height) {
			continue
		}
		candidates = append(candidates, spriteEntry{
			oamIndex: i,
			y:        spriteY,
			x:        p.oam[base+1],
			tile:     p.oam[base+2],
			attr:     p.oam[base+3],
		})
	}

	// DMG breaks ties by X then OAM order; CGB uses pure OAM order. Draw
	// lowest priority first so higher-priority sprites end up on top.
	if !p.cgb {
		stableSortByX(candidates)
	}
	for i, j := 0, len(candidates)-1; i < j; i, j = i+1, j-1 {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}

	for _, sp := range candidates {
		p.drawSpriteRow(sp, line, height)
	}
}

func stableSortByX(s []spriteEntry) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j].x > v.x {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}

func (p *PPU) drawSpriteRow(sp spriteEntry, line, height uint8) {
	yFlip := sp.attr&0x40 != 0
	xFlip := sp.attr&0x20 != 0
	behindBG := sp.attr&0x80 != 0
	dmgPaletteSel := sp.attr&0x10 != 0
	cgbBank := uint8(0)
	cgbPalette := sp.attr & 0x07
	if p.cgb {
		cgbBank = (sp.attr >> 3) & 0x01
	}

	top := int(sp.y) - 16
	row := int(line) - top
	if yFlip {
		row = int(height) - 1 - row
	}

	tile := sp.tile
	if height == 16 {
		tile &^= 0x01
		if row >= 8 {
			row -= 8
			tile |= 0x01
		}
	}

	dataOffset := uint16(tile) * 16
	lo, hi := p.tileRow(cgbBank, dataOffset, uint8(row), false)

	for col := uint8(0); col < 8; col++ {
		screenX := int(sp.x) - 8 + int(col)
		if screenX < 0 || screenX >= ScreenWidth {
			continue
		}
		colorIndex := colorIndexAt(lo, hi, col, xFlip)
		if colorIndex == 0 {
			continue
		}

		bgIdx := p.bgColorIndex[screenX]
		if p.cgb {
			masterPriority := p.lcdc&0x01 != 0
			if masterPriority && (p.bgPriority[screenX] || behindBG) && bgIdx != 0 {
				continue
			}
		} else if behindBG && bgIdx != 0 {
			continue
		}

		var color uint32
		if p.cgb {
			color = p.objColorFromCGBPalette(cgbPalette, colorIndex)
		} else {
			palette := p.obp0
			if dmgPaletteSel {
				palette = p.obp1
			}
			color = objDMGColor(palette, colorIndex)
		}
		p.framebuffer[int(line)*ScreenWidth+screenX] = color
	}
}
