// Package binary decodes the WebAssembly binary format into a wasm.Module, whose function bodies and initializers
// are already resolved into instruction trees.
package binary

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"github.com/treewasm/treewasm/api"
	"github.com/treewasm/treewasm/internal/logging"
	"github.com/treewasm/treewasm/internal/wasm"
)

// decoder holds the state shared by the section decoders: the type section is needed to resolve block types.
type decoder struct {
	module   *wasm.Module
	features api.CoreFeatures
	logger   *zap.Logger
}

// DecodeModule implements wasm.DecodeModule for the WebAssembly 1.0 (20191205) Binary Format, and the 2.0 additions
// gated by enabledFeatures.
//
// Sections with an unknown ID are skipped with a warning, or rejected with ErrInvalidSectionID when strictSections
// is set.
//
// See https://www.w3.org/TR/2019/REC-wasm-core-1-20191205/#binary-format%E2%91%A0
func DecodeModule(source []byte, enabledFeatures api.CoreFeatures, strictSections bool, logger *zap.Logger) (*wasm.Module, error) {
	d := &decoder{module: &wasm.Module{}, features: enabledFeatures, logger: logging.Or(logger)}
	c := newCursor(source)

	magic, err := c.readBytes(4)
	if err != nil || !bytes.Equal(magic, Magic) {
		return nil, ErrInvalidMagicNumber
	}
	v, err := c.readBytes(4)
	if err != nil || !bytes.Equal(v, version) {
		return nil, ErrInvalidVersion
	}

	m := d.module
	lastOrder := 0
	for c.hasRemaining() {
		start := c.offset()
		sectionID, err := c.readByte()
		if err != nil {
			return nil, fmt.Errorf("read section id: %w", err)
		}
		sectionSize, err := c.readUint32()
		if err != nil {
			return nil, fmt.Errorf("get size of section %s: %w", wasm.SectionIDName(sectionID), err)
		}
		section, err := c.take(sectionSize)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", wasm.SectionIDName(sectionID), err)
		}

		if sectionID > wasm.SectionIDDataCount {
			if strictSections {
				return nil, fmt.Errorf("%w: %#x at offset %#x", ErrInvalidSectionID, sectionID, start)
			}
			d.logger.Warn("skipping unknown section",
				zap.Uint8("id", sectionID), zap.Int("offset", start), zap.Uint32("size", sectionSize))
			continue
		}

		if sectionID != wasm.SectionIDCustom {
			order := wasm.SectionOrder(sectionID)
			if order <= lastOrder {
				return nil, fmt.Errorf("section %s at offset %#x: unexpected section: out of order or duplicate",
					wasm.SectionIDName(sectionID), start)
			}
			lastOrder = order
		}

		if err = d.decodeSection(sectionID, section); err != nil {
			return nil, fmt.Errorf("section %s: %w", wasm.SectionIDName(sectionID), err)
		}
		if section.hasRemaining() {
			return nil, fmt.Errorf("section %s: invalid section length: expected to be %d but got %d",
				wasm.SectionIDName(sectionID), sectionSize, int(sectionSize)-section.remaining())
		}
	}

	if functionCount, codeCount := len(m.FunctionSection), len(m.CodeSection); functionCount != codeCount {
		return nil, fmt.Errorf("function and code section have inconsistent lengths: %d != %d", functionCount, codeCount)
	}
	if m.DataCountSection != nil && int(*m.DataCountSection) != len(m.DataSection) {
		return nil, fmt.Errorf("data count and data section have inconsistent lengths: %d != %d",
			*m.DataCountSection, len(m.DataSection))
	}
	return m, nil
}

func (d *decoder) decodeSection(id wasm.SectionID, c *cursor) (err error) {
	m := d.module
	switch id {
	case wasm.SectionIDCustom:
		return d.decodeCustomSection(c)
	case wasm.SectionIDType:
		m.TypeSection, err = d.decodeTypeSection(c)
	case wasm.SectionIDImport:
		m.ImportSection, err = d.decodeImportSection(c)
	case wasm.SectionIDFunction:
		m.FunctionSection, err = decodeFunctionSection(c)
	case wasm.SectionIDTable:
		m.TableSection, err = decodeTableSection(c)
	case wasm.SectionIDMemory:
		m.MemorySection, err = decodeMemorySection(c)
	case wasm.SectionIDGlobal:
		m.GlobalSection, err = d.decodeGlobalSection(c)
	case wasm.SectionIDExport:
		m.ExportSection, err = decodeExportSection(c)
	case wasm.SectionIDStart:
		m.StartSection, err = decodeStartSection(c)
	case wasm.SectionIDElement:
		m.ElementSection, err = d.decodeElementSection(c)
	case wasm.SectionIDCode:
		m.CodeSection, err = d.decodeCodeSection(c)
	case wasm.SectionIDData:
		m.DataSection, err = d.decodeDataSection(c)
	case wasm.SectionIDDataCount:
		if err = d.features.RequireEnabled(api.CoreFeatureBulkMemoryOperations); err != nil {
			return fmt.Errorf("data count section not supported as %w", err)
		}
		m.DataCountSection, err = decodeDataCountSection(c)
	}
	return
}

// decodeCustomSection keeps the data of a custom section by name. The "name" section is decoded, but custom
// sections never make a module invalid: a malformed one is logged and ignored.
func (d *decoder) decodeCustomSection(c *cursor) error {
	name, err := c.readName("custom section name")
	if err != nil {
		return err
	}
	data, _ := c.readBytes(uint32(c.remaining()))

	if name == "name" {
		ns, err := decodeNameSection(&cursor{buf: data, base: c.offset() - len(data)})
		if err != nil {
			d.logger.Warn("ignoring malformed name section", zap.Error(err))
		} else {
			d.module.NameSection = ns
		}
		return nil
	}

	if d.module.CustomSections == nil {
		d.module.CustomSections = map[string][]byte{}
	}
	if _, ok := d.module.CustomSections[name]; ok {
		d.logger.Debug("replacing duplicate custom section", zap.String("name", name))
	}
	d.module.CustomSections[name] = data
	return nil
}
