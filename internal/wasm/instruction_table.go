package wasm

import "github.com/treewasm/treewasm/api"

const (
	OpcodeUnreachable       OpcodeID = 0x00   // unreachable
	OpcodeNop               OpcodeID = 0x01   // nop
	OpcodeBlock             OpcodeID = 0x02   // block
	OpcodeLoop              OpcodeID = 0x03   // loop
	OpcodeIf                OpcodeID = 0x04   // if
	OpcodeElse              OpcodeID = 0x05   // else
	OpcodeEnd               OpcodeID = 0x0b   // end
	OpcodeBr                OpcodeID = 0x0c   // br
	OpcodeBrIf              OpcodeID = 0x0d   // br_if
	OpcodeBrTable           OpcodeID = 0x0e   // br_table
	OpcodeReturn            OpcodeID = 0x0f   // return
	OpcodeCall              OpcodeID = 0x10   // call
	OpcodeCallIndirect      OpcodeID = 0x11   // call_indirect
	OpcodeDrop              OpcodeID = 0x1a   // drop
	OpcodeSelect            OpcodeID = 0x1b   // select
	OpcodeTypedSelect       OpcodeID = 0x1c   // select
	OpcodeLocalGet          OpcodeID = 0x20   // local.get
	OpcodeLocalSet          OpcodeID = 0x21   // local.set
	OpcodeLocalTee          OpcodeID = 0x22   // local.tee
	OpcodeGlobalGet         OpcodeID = 0x23   // global.get
	OpcodeGlobalSet         OpcodeID = 0x24   // global.set
	OpcodeTableGet          OpcodeID = 0x25   // table.get
	OpcodeTableSet          OpcodeID = 0x26   // table.set
	OpcodeI32Load           OpcodeID = 0x28   // i32.load
	OpcodeI64Load           OpcodeID = 0x29   // i64.load
	OpcodeF32Load           OpcodeID = 0x2a   // f32.load
	OpcodeF64Load           OpcodeID = 0x2b   // f64.load
	OpcodeI32Load8S         OpcodeID = 0x2c   // i32.load8_s
	OpcodeI32Load8U         OpcodeID = 0x2d   // i32.load8_u
	OpcodeI32Load16S        OpcodeID = 0x2e   // i32.load16_s
	OpcodeI32Load16U        OpcodeID = 0x2f   // i32.load16_u
	OpcodeI64Load8S         OpcodeID = 0x30   // i64.load8_s
	OpcodeI64Load8U         OpcodeID = 0x31   // i64.load8_u
	OpcodeI64Load16S        OpcodeID = 0x32   // i64.load16_s
	OpcodeI64Load16U        OpcodeID = 0x33   // i64.load16_u
	OpcodeI64Load32S        OpcodeID = 0x34   // i64.load32_s
	OpcodeI64Load32U        OpcodeID = 0x35   // i64.load32_u
	OpcodeI32Store          OpcodeID = 0x36   // i32.store
	OpcodeI64Store          OpcodeID = 0x37   // i64.store
	OpcodeF32Store          OpcodeID = 0x38   // f32.store
	OpcodeF64Store          OpcodeID = 0x39   // f64.store
	OpcodeI32Store8         OpcodeID = 0x3a   // i32.store8
	OpcodeI32Store16        OpcodeID = 0x3b   // i32.store16
	OpcodeI64Store8         OpcodeID = 0x3c   // i64.store8
	OpcodeI64Store16        OpcodeID = 0x3d   // i64.store16
	OpcodeI64Store32        OpcodeID = 0x3e   // i64.store32
	OpcodeMemorySize        OpcodeID = 0x3f   // memory.size
	OpcodeMemoryGrow        OpcodeID = 0x40   // memory.grow
	OpcodeI32Const          OpcodeID = 0x41   // i32.const
	OpcodeI64Const          OpcodeID = 0x42   // i64.const
	OpcodeF32Const          OpcodeID = 0x43   // f32.const
	OpcodeF64Const          OpcodeID = 0x44   // f64.const
	OpcodeI32Eqz            OpcodeID = 0x45   // i32.eqz
	OpcodeI32Eq             OpcodeID = 0x46   // i32.eq
	OpcodeI32Ne             OpcodeID = 0x47   // i32.ne
	OpcodeI32LtS            OpcodeID = 0x48   // i32.lt_s
	OpcodeI32LtU            OpcodeID = 0x49   // i32.lt_u
	OpcodeI32GtS            OpcodeID = 0x4a   // i32.gt_s
	OpcodeI32GtU            OpcodeID = 0x4b   // i32.gt_u
	OpcodeI32LeS            OpcodeID = 0x4c   // i32.le_s
	OpcodeI32LeU            OpcodeID = 0x4d   // i32.le_u
	OpcodeI32GeS            OpcodeID = 0x4e   // i32.ge_s
	OpcodeI32GeU            OpcodeID = 0x4f   // i32.ge_u
	OpcodeI64Eqz            OpcodeID = 0x50   // i64.eqz
	OpcodeI64Eq             OpcodeID = 0x51   // i64.eq
	OpcodeI64Ne             OpcodeID = 0x52   // i64.ne
	OpcodeI64LtS            OpcodeID = 0x53   // i64.lt_s
	OpcodeI64LtU            OpcodeID = 0x54   // i64.lt_u
	OpcodeI64GtS            OpcodeID = 0x55   // i64.gt_s
	OpcodeI64GtU            OpcodeID = 0x56   // i64.gt_u
	OpcodeI64LeS            OpcodeID = 0x57   // i64.le_s
	OpcodeI64LeU            OpcodeID = 0x58   // i64.le_u
	OpcodeI64GeS            OpcodeID = 0x59   // i64.ge_s
	OpcodeI64GeU            OpcodeID = 0x5a   // i64.ge_u
	OpcodeF32Eq             OpcodeID = 0x5b   // f32.eq
	OpcodeF32Ne             OpcodeID = 0x5c   // f32.ne
	OpcodeF32Lt             OpcodeID = 0x5d   // f32.lt
	OpcodeF32Gt             OpcodeID = 0x5e   // f32.gt
	OpcodeF32Le             OpcodeID = 0x5f   // f32.le
	OpcodeF32Ge             OpcodeID = 0x60   // f32.ge
	OpcodeF64Eq             OpcodeID = 0x61   // f64.eq
	OpcodeF64Ne             OpcodeID = 0x62   // f64.ne
	OpcodeF64Lt             OpcodeID = 0x63   // f64.lt
	OpcodeF64Gt             OpcodeID = 0x64   // f64.gt
	OpcodeF64Le             OpcodeID = 0x65   // f64.le
	OpcodeF64Ge             OpcodeID = 0x66   // f64.ge
	OpcodeI32Clz            OpcodeID = 0x67   // i32.clz
	OpcodeI32Ctz            OpcodeID = 0x68   // i32.ctz
	OpcodeI32Popcnt         OpcodeID = 0x69   // i32.popcnt
	OpcodeI32Add            OpcodeID = 0x6a   // i32.add
	OpcodeI32Sub            OpcodeID = 0x6b   // i32.sub
	OpcodeI32Mul            OpcodeID = 0x6c   // i32.mul
	OpcodeI32DivS           OpcodeID = 0x6d   // i32.div_s
	OpcodeI32DivU           OpcodeID = 0x6e   // i32.div_u
	OpcodeI32RemS           OpcodeID = 0x6f   // i32.rem_s
	OpcodeI32RemU           OpcodeID = 0x70   // i32.rem_u
	OpcodeI32And            OpcodeID = 0x71   // i32.and
	OpcodeI32Or             OpcodeID = 0x72   // i32.or
	OpcodeI32Xor            OpcodeID = 0x73   // i32.xor
	OpcodeI32Shl            OpcodeID = 0x74   // i32.shl
	OpcodeI32ShrS           OpcodeID = 0x75   // i32.shr_s
	OpcodeI32ShrU           OpcodeID = 0x76   // i32.shr_u
	OpcodeI32Rotl           OpcodeID = 0x77   // i32.rotl
	OpcodeI32Rotr           OpcodeID = 0x78   // i32.rotr
	OpcodeI64Clz            OpcodeID = 0x79   // i64.clz
	OpcodeI64Ctz            OpcodeID = 0x7a   // i64.ctz
	OpcodeI64Popcnt         OpcodeID = 0x7b   // i64.popcnt
	OpcodeI64Add            OpcodeID = 0x7c   // i64.add
	OpcodeI64Sub            OpcodeID = 0x7d   // i64.sub
	OpcodeI64Mul            OpcodeID = 0x7e   // i64.mul
	OpcodeI64DivS           OpcodeID = 0x7f   // i64.div_s
	OpcodeI64DivU           OpcodeID = 0x80   // i64.div_u
	OpcodeI64RemS           OpcodeID = 0x81   // i64.rem_s
	OpcodeI64RemU           OpcodeID = 0x82   // i64.rem_u
	OpcodeI64And            OpcodeID = 0x83   // i64.and
	OpcodeI64Or             OpcodeID = 0x84   // i64.or
	OpcodeI64Xor            OpcodeID = 0x85   // i64.xor
	OpcodeI64Shl            OpcodeID = 0x86   // i64.shl
	OpcodeI64ShrS           OpcodeID = 0x87   // i64.shr_s
	OpcodeI64ShrU           OpcodeID = 0x88   // i64.shr_u
	OpcodeI64Rotl           OpcodeID = 0x89   // i64.rotl
	OpcodeI64Rotr           OpcodeID = 0x8a   // i64.rotr
	OpcodeF32Abs            OpcodeID = 0x8b   // f32.abs
	OpcodeF32Neg            OpcodeID = 0x8c   // f32.neg
	OpcodeF32Ceil           OpcodeID = 0x8d   // f32.ceil
	OpcodeF32Floor          OpcodeID = 0x8e   // f32.floor
	OpcodeF32Trunc          OpcodeID = 0x8f   // f32.trunc
	OpcodeF32Nearest        OpcodeID = 0x90   // f32.nearest
	OpcodeF32Sqrt           OpcodeID = 0x91   // f32.sqrt
	OpcodeF32Add            OpcodeID = 0x92   // f32.add
	OpcodeF32Sub            OpcodeID = 0x93   // f32.sub
	OpcodeF32Mul            OpcodeID = 0x94   // f32.mul
	OpcodeF32Div            OpcodeID = 0x95   // f32.div
	OpcodeF32Min            OpcodeID = 0x96   // f32.min
	OpcodeF32Max            OpcodeID = 0x97   // f32.max
	OpcodeF32Copysign       OpcodeID = 0x98   // f32.copysign
	OpcodeF64Abs            OpcodeID = 0x99   // f64.abs
	OpcodeF64Neg            OpcodeID = 0x9a   // f64.neg
	OpcodeF64Ceil           OpcodeID = 0x9b   // f64.ceil
	OpcodeF64Floor          OpcodeID = 0x9c   // f64.floor
	OpcodeF64Trunc          OpcodeID = 0x9d   // f64.trunc
	OpcodeF64Nearest        OpcodeID = 0x9e   // f64.nearest
	OpcodeF64Sqrt           OpcodeID = 0x9f   // f64.sqrt
	OpcodeF64Add            OpcodeID = 0xa0   // f64.add
	OpcodeF64Sub            OpcodeID = 0xa1   // f64.sub
	OpcodeF64Mul            OpcodeID = 0xa2   // f64.mul
	OpcodeF64Div            OpcodeID = 0xa3   // f64.div
	OpcodeF64Min            OpcodeID = 0xa4   // f64.min
	OpcodeF64Max            OpcodeID = 0xa5   // f64.max
	OpcodeF64Copysign       OpcodeID = 0xa6   // f64.copysign
	OpcodeI32WrapI64        OpcodeID = 0xa7   // i32.wrap_i64
	OpcodeI32TruncF32S      OpcodeID = 0xa8   // i32.trunc_f32_s
	OpcodeI32TruncF32U      OpcodeID = 0xa9   // i32.trunc_f32_u
	OpcodeI32TruncF64S      OpcodeID = 0xaa   // i32.trunc_f64_s
	OpcodeI32TruncF64U      OpcodeID = 0xab   // i32.trunc_f64_u
	OpcodeI64ExtendI32S     OpcodeID = 0xac   // i64.extend_i32_s
	OpcodeI64ExtendI32U     OpcodeID = 0xad   // i64.extend_i32_u
	OpcodeI64TruncF32S      OpcodeID = 0xae   // i64.trunc_f32_s
	OpcodeI64TruncF32U      OpcodeID = 0xaf   // i64.trunc_f32_u
	OpcodeI64TruncF64S      OpcodeID = 0xb0   // i64.trunc_f64_s
	OpcodeI64TruncF64U      OpcodeID = 0xb1   // i64.trunc_f64_u
	OpcodeF32ConvertI32S    OpcodeID = 0xb2   // f32.convert_i32_s
	OpcodeF32ConvertI32U    OpcodeID = 0xb3   // f32.convert_i32_u
	OpcodeF32ConvertI64S    OpcodeID = 0xb4   // f32.convert_i64_s
	OpcodeF32ConvertI64U    OpcodeID = 0xb5   // f32.convert_i64_u
	OpcodeF32DemoteF64      OpcodeID = 0xb6   // f32.demote_f64
	OpcodeF64ConvertI32S    OpcodeID = 0xb7   // f64.convert_i32_s
	OpcodeF64ConvertI32U    OpcodeID = 0xb8   // f64.convert_i32_u
	OpcodeF64ConvertI64S    OpcodeID = 0xb9   // f64.convert_i64_s
	OpcodeF64ConvertI64U    OpcodeID = 0xba   // f64.convert_i64_u
	OpcodeF64PromoteF32     OpcodeID = 0xbb   // f64.promote_f32
	OpcodeI32ReinterpretF32 OpcodeID = 0xbc   // i32.reinterpret_f32
	OpcodeI64ReinterpretF64 OpcodeID = 0xbd   // i64.reinterpret_f64
	OpcodeF32ReinterpretI32 OpcodeID = 0xbe   // f32.reinterpret_i32
	OpcodeF64ReinterpretI64 OpcodeID = 0xbf   // f64.reinterpret_i64
	OpcodeI32Extend8S       OpcodeID = 0xc0   // i32.extend8_s
	OpcodeI32Extend16S      OpcodeID = 0xc1   // i32.extend16_s
	OpcodeI64Extend8S       OpcodeID = 0xc2   // i64.extend8_s
	OpcodeI64Extend16S      OpcodeID = 0xc3   // i64.extend16_s
	OpcodeI64Extend32S      OpcodeID = 0xc4   // i64.extend32_s
	OpcodeRefNull           OpcodeID = 0xd0   // ref.null
	OpcodeRefIsNull         OpcodeID = 0xd1   // ref.is_null
	OpcodeRefFunc           OpcodeID = 0xd2   // ref.func
	OpcodeI32TruncSatF32S   OpcodeID = 0xfc00 // i32.trunc_sat_f32_s
	OpcodeI32TruncSatF32U   OpcodeID = 0xfc01 // i32.trunc_sat_f32_u
	OpcodeI32TruncSatF64S   OpcodeID = 0xfc02 // i32.trunc_sat_f64_s
	OpcodeI32TruncSatF64U   OpcodeID = 0xfc03 // i32.trunc_sat_f64_u
	OpcodeI64TruncSatF32S   OpcodeID = 0xfc04 // i64.trunc_sat_f32_s
	OpcodeI64TruncSatF32U   OpcodeID = 0xfc05 // i64.trunc_sat_f32_u
	OpcodeI64TruncSatF64S   OpcodeID = 0xfc06 // i64.trunc_sat_f64_s
	OpcodeI64TruncSatF64U   OpcodeID = 0xfc07 // i64.trunc_sat_f64_u
	OpcodeMemoryInit        OpcodeID = 0xfc08 // memory.init
	OpcodeDataDrop          OpcodeID = 0xfc09 // data.drop
	OpcodeMemoryCopy        OpcodeID = 0xfc0a // memory.copy
	OpcodeMemoryFill        OpcodeID = 0xfc0b // memory.fill
	OpcodeTableInit         OpcodeID = 0xfc0c // table.init
	OpcodeElemDrop          OpcodeID = 0xfc0d // elem.drop
	OpcodeTableCopy         OpcodeID = 0xfc0e // table.copy
	OpcodeTableGrow         OpcodeID = 0xfc0f // table.grow
	OpcodeTableSize         OpcodeID = 0xfc10 // table.size
	OpcodeTableFill         OpcodeID = 0xfc11 // table.fill
)

var instructionNames = map[OpcodeID]string{
	OpcodeUnreachable:       "unreachable",
	OpcodeNop:               "nop",
	OpcodeBlock:             "block",
	OpcodeLoop:              "loop",
	OpcodeIf:                "if",
	OpcodeElse:              "else",
	OpcodeEnd:               "end",
	OpcodeBr:                "br",
	OpcodeBrIf:              "br_if",
	OpcodeBrTable:           "br_table",
	OpcodeReturn:            "return",
	OpcodeCall:              "call",
	OpcodeCallIndirect:      "call_indirect",
	OpcodeDrop:              "drop",
	OpcodeSelect:            "select",
	OpcodeTypedSelect:       "select",
	OpcodeLocalGet:          "local.get",
	OpcodeLocalSet:          "local.set",
	OpcodeLocalTee:          "local.tee",
	OpcodeGlobalGet:         "global.get",
	OpcodeGlobalSet:         "global.set",
	OpcodeTableGet:          "table.get",
	OpcodeTableSet:          "table.set",
	OpcodeI32Load:           "i32.load",
	OpcodeI64Load:           "i64.load",
	OpcodeF32Load:           "f32.load",
	OpcodeF64Load:           "f64.load",
	OpcodeI32Load8S:         "i32.load8_s",
	OpcodeI32Load8U:         "i32.load8_u",
	OpcodeI32Load16S:        "i32.load16_s",
	OpcodeI32Load16U:        "i32.load16_u",
	OpcodeI64Load8S:         "i64.load8_s",
	OpcodeI64Load8U:         "i64.load8_u",
	OpcodeI64Load16S:        "i64.load16_s",
	OpcodeI64Load16U:        "i64.load16_u",
	OpcodeI64Load32S:        "i64.load32_s",
	OpcodeI64Load32U:        "i64.load32_u",
	OpcodeI32Store:          "i32.store",
	OpcodeI64Store:          "i64.store",
	OpcodeF32Store:          "f32.store",
	OpcodeF64Store:          "f64.store",
	OpcodeI32Store8:         "i32.store8",
	OpcodeI32Store16:        "i32.store16",
	OpcodeI64Store8:         "i64.store8",
	OpcodeI64Store16:        "i64.store16",
	OpcodeI64Store32:        "i64.store32",
	OpcodeMemorySize:        "memory.size",
	OpcodeMemoryGrow:        "memory.grow",
	OpcodeI32Const:          "i32.const",
	OpcodeI64Const:          "i64.const",
	OpcodeF32Const:          "f32.const",
	OpcodeF64Const:          "f64.const",
	OpcodeI32Eqz:            "i32.eqz",
	OpcodeI32Eq:             "i32.eq",
	OpcodeI32Ne:             "i32.ne",
	OpcodeI32LtS:            "i32.lt_s",
	OpcodeI32LtU:            "i32.lt_u",
	OpcodeI32GtS:            "i32.gt_s",
	OpcodeI32GtU:            "i32.gt_u",
	OpcodeI32LeS:            "i32.le_s",
	OpcodeI32LeU:            "i32.le_u",
	OpcodeI32GeS:            "i32.ge_s",
	OpcodeI32GeU:            "i32.ge_u",
	OpcodeI64Eqz:            "i64.eqz",
	OpcodeI64Eq:             "i64.eq",
	OpcodeI64Ne:             "i64.ne",
	OpcodeI64LtS:            "i64.lt_s",
	OpcodeI64LtU:            "i64.lt_u",
	OpcodeI64GtS:            "i64.gt_s",
	OpcodeI64GtU:            "i64.gt_u",
	OpcodeI64LeS:            "i64.le_s",
	OpcodeI64LeU:            "i64.le_u",
	OpcodeI64GeS:            "i64.ge_s",
	OpcodeI64GeU:            "i64.ge_u",
	OpcodeF32Eq:             "f32.eq",
	OpcodeF32Ne:             "f32.ne",
	OpcodeF32Lt:             "f32.lt",
	OpcodeF32Gt:             "f32.gt",
	OpcodeF32Le:             "f32.le",
	OpcodeF32Ge:             "f32.ge",
	OpcodeF64Eq:             "f64.eq",
	OpcodeF64Ne:             "f64.ne",
	OpcodeF64Lt:             "f64.lt",
	OpcodeF64Gt:             "f64.gt",
	OpcodeF64Le:             "f64.le",
	OpcodeF64Ge:             "f64.ge",
	OpcodeI32Clz:            "i32.clz",
	OpcodeI32Ctz:            "i32.ctz",
	OpcodeI32Popcnt:         "i32.popcnt",
	OpcodeI32Add:            "i32.add",
	OpcodeI32Sub:            "i32.sub",
	OpcodeI32Mul:            "i32.mul",
	OpcodeI32DivS:           "i32.div_s",
	OpcodeI32DivU:           "i32.div_u",
	OpcodeI32RemS:           "i32.rem_s",
	OpcodeI32RemU:           "i32.rem_u",
	OpcodeI32And:            "i32.and",
	OpcodeI32Or:             "i32.or",
	OpcodeI32Xor:            "i32.xor",
	OpcodeI32Shl:            "i32.shl",
	OpcodeI32ShrS:           "i32.shr_s",
	OpcodeI32ShrU:           "i32.shr_u",
	OpcodeI32Rotl:           "i32.rotl",
	OpcodeI32Rotr:           "i32.rotr",
	OpcodeI64Clz:            "i64.clz",
	OpcodeI64Ctz:            "i64.ctz",
	OpcodeI64Popcnt:         "i64.popcnt",
	OpcodeI64Add:            "i64.add",
	OpcodeI64Sub:            "i64.sub",
	OpcodeI64Mul:            "i64.mul",
	OpcodeI64DivS:           "i64.div_s",
	OpcodeI64DivU:           "i64.div_u",
	OpcodeI64RemS:           "i64.rem_s",
	OpcodeI64RemU:           "i64.rem_u",
	OpcodeI64And:            "i64.and",
	OpcodeI64Or:             "i64.or",
	OpcodeI64Xor:            "i64.xor",
	OpcodeI64Shl:            "i64.shl",
	OpcodeI64ShrS:           "i64.shr_s",
	OpcodeI64ShrU:           "i64.shr_u",
	OpcodeI64Rotl:           "i64.rotl",
	OpcodeI64Rotr:           "i64.rotr",
	OpcodeF32Abs:            "f32.abs",
	OpcodeF32Neg:            "f32.neg",
	OpcodeF32Ceil:           "f32.ceil",
	OpcodeF32Floor:          "f32.floor",
	OpcodeF32Trunc:          "f32.trunc",
	OpcodeF32Nearest:        "f32.nearest",
	OpcodeF32Sqrt:           "f32.sqrt",
	OpcodeF32Add:            "f32.add",
	OpcodeF32Sub:            "f32.sub",
	OpcodeF32Mul:            "f32.mul",
	OpcodeF32Div:            "f32.div",
	OpcodeF32Min:            "f32.min",
	OpcodeF32Max:            "f32.max",
	OpcodeF32Copysign:       "f32.copysign",
	OpcodeF64Abs:            "f64.abs",
	OpcodeF64Neg:            "f64.neg",
	OpcodeF64Ceil:           "f64.ceil",
	OpcodeF64Floor:          "f64.floor",
	OpcodeF64Trunc:          "f64.trunc",
	OpcodeF64Nearest:        "f64.nearest",
	OpcodeF64Sqrt:           "f64.sqrt",
	OpcodeF64Add:            "f64.add",
	OpcodeF64Sub:            "f64.sub",
	OpcodeF64Mul:            "f64.mul",
	OpcodeF64Div:            "f64.div",
	OpcodeF64Min:            "f64.min",
	OpcodeF64Max:            "f64.max",
	OpcodeF64Copysign:       "f64.copysign",
	OpcodeI32WrapI64:        "i32.wrap_i64",
	OpcodeI32TruncF32S:      "i32.trunc_f32_s",
	OpcodeI32TruncF32U:      "i32.trunc_f32_u",
	OpcodeI32TruncF64S:      "i32.trunc_f64_s",
	OpcodeI32TruncF64U:      "i32.trunc_f64_u",
	OpcodeI64ExtendI32S:     "i64.extend_i32_s",
	OpcodeI64ExtendI32U:     "i64.extend_i32_u",
	OpcodeI64TruncF32S:      "i64.trunc_f32_s",
	OpcodeI64TruncF32U:      "i64.trunc_f32_u",
	OpcodeI64TruncF64S:      "i64.trunc_f64_s",
	OpcodeI64TruncF64U:      "i64.trunc_f64_u",
	OpcodeF32ConvertI32S:    "f32.convert_i32_s",
	OpcodeF32ConvertI32U:    "f32.convert_i32_u",
	OpcodeF32ConvertI64S:    "f32.convert_i64_s",
	OpcodeF32ConvertI64U:    "f32.convert_i64_u",
	OpcodeF32DemoteF64:      "f32.demote_f64",
	OpcodeF64ConvertI32S:    "f64.convert_i32_s",
	OpcodeF64ConvertI32U:    "f64.convert_i32_u",
	OpcodeF64ConvertI64S:    "f64.convert_i64_s",
	OpcodeF64ConvertI64U:    "f64.convert_i64_u",
	OpcodeF64PromoteF32:     "f64.promote_f32",
	OpcodeI32ReinterpretF32: "i32.reinterpret_f32",
	OpcodeI64ReinterpretF64: "i64.reinterpret_f64",
	OpcodeF32ReinterpretI32: "f32.reinterpret_i32",
	OpcodeF64ReinterpretI64: "f64.reinterpret_i64",
	OpcodeI32Extend8S:       "i32.extend8_s",
	OpcodeI32Extend16S:      "i32.extend16_s",
	OpcodeI64Extend8S:       "i64.extend8_s",
	OpcodeI64Extend16S:      "i64.extend16_s",
	OpcodeI64Extend32S:      "i64.extend32_s",
	OpcodeRefNull:           "ref.null",
	OpcodeRefIsNull:         "ref.is_null",
	OpcodeRefFunc:           "ref.func",
	OpcodeI32TruncSatF32S:   "i32.trunc_sat_f32_s",
	OpcodeI32TruncSatF32U:   "i32.trunc_sat_f32_u",
	OpcodeI32TruncSatF64S:   "i32.trunc_sat_f64_s",
	OpcodeI32TruncSatF64U:   "i32.trunc_sat_f64_u",
	OpcodeI64TruncSatF32S:   "i64.trunc_sat_f32_s",
	OpcodeI64TruncSatF32U:   "i64.trunc_sat_f32_u",
	OpcodeI64TruncSatF64S:   "i64.trunc_sat_f64_s",
	OpcodeI64TruncSatF64U:   "i64.trunc_sat_f64_u",
	OpcodeMemoryInit:        "memory.init",
	OpcodeDataDrop:          "data.drop",
	OpcodeMemoryCopy:        "memory.copy",
	OpcodeMemoryFill:        "memory.fill",
	OpcodeTableInit:         "table.init",
	OpcodeElemDrop:          "elem.drop",
	OpcodeTableCopy:         "table.copy",
	OpcodeTableGrow:         "table.grow",
	OpcodeTableSize:         "table.size",
	OpcodeTableFill:         "table.fill",
}

var operandKinds = map[OpcodeID]OperandKind{
	OpcodeBlock:        OperandBlockType,
	OpcodeLoop:         OperandBlockType,
	OpcodeIf:           OperandBlockType,
	OpcodeBr:           OperandU32,
	OpcodeBrIf:         OperandU32,
	OpcodeBrTable:      OperandLabels,
	OpcodeCall:         OperandU32,
	OpcodeCallIndirect: OperandU32U32,
	OpcodeTypedSelect:  OperandValTypes,
	OpcodeLocalGet:     OperandU32,
	OpcodeLocalSet:     OperandU32,
	OpcodeLocalTee:     OperandU32,
	OpcodeGlobalGet:    OperandU32,
	OpcodeGlobalSet:    OperandU32,
	OpcodeTableGet:     OperandU32,
	OpcodeTableSet:     OperandU32,
	OpcodeI32Load:      OperandMemArg,
	OpcodeI64Load:      OperandMemArg,
	OpcodeF32Load:      OperandMemArg,
	OpcodeF64Load:      OperandMemArg,
	OpcodeI32Load8S:    OperandMemArg,
	OpcodeI32Load8U:    OperandMemArg,
	OpcodeI32Load16S:   OperandMemArg,
	OpcodeI32Load16U:   OperandMemArg,
	OpcodeI64Load8S:    OperandMemArg,
	OpcodeI64Load8U:    OperandMemArg,
	OpcodeI64Load16S:   OperandMemArg,
	OpcodeI64Load16U:   OperandMemArg,
	OpcodeI64Load32S:   OperandMemArg,
	OpcodeI64Load32U:   OperandMemArg,
	OpcodeI32Store:     OperandMemArg,
	OpcodeI64Store:     OperandMemArg,
	OpcodeF32Store:     OperandMemArg,
	OpcodeF64Store:     OperandMemArg,
	OpcodeI32Store8:    OperandMemArg,
	OpcodeI32Store16:   OperandMemArg,
	OpcodeI64Store8:    OperandMemArg,
	OpcodeI64Store16:   OperandMemArg,
	OpcodeI64Store32:   OperandMemArg,
	OpcodeMemorySize:   OperandZeroByte,
	OpcodeMemoryGrow:   OperandZeroByte,
	OpcodeI32Const:     OperandI32,
	OpcodeI64Const:     OperandI64,
	OpcodeF32Const:     OperandF32,
	OpcodeF64Const:     OperandF64,
	OpcodeRefNull:      OperandRefType,
	OpcodeRefFunc:      OperandU32,
	OpcodeMemoryInit:   OperandU32ZeroByte,
	OpcodeDataDrop:     OperandU32,
	OpcodeMemoryCopy:   OperandZeroByteZeroByte,
	OpcodeMemoryFill:   OperandZeroByte,
	OpcodeTableInit:    OperandU32U32,
	OpcodeElemDrop:     OperandU32,
	OpcodeTableCopy:    OperandU32U32,
	OpcodeTableGrow:    OperandU32,
	OpcodeTableSize:    OperandU32,
	OpcodeTableFill:    OperandU32,
}

var requiredFeatures = map[OpcodeID]api.CoreFeatures{
	OpcodeTypedSelect:     api.CoreFeatureReferenceTypes,
	OpcodeTableGet:        api.CoreFeatureReferenceTypes,
	OpcodeTableSet:        api.CoreFeatureReferenceTypes,
	OpcodeI32Extend8S:     api.CoreFeatureSignExtensionOps,
	OpcodeI32Extend16S:    api.CoreFeatureSignExtensionOps,
	OpcodeI64Extend8S:     api.CoreFeatureSignExtensionOps,
	OpcodeI64Extend16S:    api.CoreFeatureSignExtensionOps,
	OpcodeI64Extend32S:    api.CoreFeatureSignExtensionOps,
	OpcodeRefNull:         api.CoreFeatureReferenceTypes,
	OpcodeRefIsNull:       api.CoreFeatureReferenceTypes,
	OpcodeRefFunc:         api.CoreFeatureReferenceTypes,
	OpcodeI32TruncSatF32S: api.CoreFeatureNonTrappingFloatToIntConversion,
	OpcodeI32TruncSatF32U: api.CoreFeatureNonTrappingFloatToIntConversion,
	OpcodeI32TruncSatF64S: api.CoreFeatureNonTrappingFloatToIntConversion,
	OpcodeI32TruncSatF64U: api.CoreFeatureNonTrappingFloatToIntConversion,
	OpcodeI64TruncSatF32S: api.CoreFeatureNonTrappingFloatToIntConversion,
	OpcodeI64TruncSatF32U: api.CoreFeatureNonTrappingFloatToIntConversion,
	OpcodeI64TruncSatF64S: api.CoreFeatureNonTrappingFloatToIntConversion,
	OpcodeI64TruncSatF64U: api.CoreFeatureNonTrappingFloatToIntConversion,
	OpcodeMemoryInit:      api.CoreFeatureBulkMemoryOperations,
	OpcodeDataDrop:        api.CoreFeatureBulkMemoryOperations,
	OpcodeMemoryCopy:      api.CoreFeatureBulkMemoryOperations,
	OpcodeMemoryFill:      api.CoreFeatureBulkMemoryOperations,
	OpcodeTableInit:       api.CoreFeatureBulkMemoryOperations,
	OpcodeElemDrop:        api.CoreFeatureBulkMemoryOperations,
	OpcodeTableCopy:       api.CoreFeatureBulkMemoryOperations,
	OpcodeTableGrow:       api.CoreFeatureReferenceTypes,
	OpcodeTableSize:       api.CoreFeatureReferenceTypes,
	OpcodeTableFill:       api.CoreFeatureReferenceTypes,
}
