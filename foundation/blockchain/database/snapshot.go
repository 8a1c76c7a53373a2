package database

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Record keywords of the snapshot text layout.
const (
	recDifficulty = "DIFFICULTY"
	recBlocks     = "BLOCKS"
	recBlock      = "BLOCK"
	recPrev       = "PREV"
	recHash       = "HASH"
	recTxCount    = "TXCOUNT"
	recTx         = "TX"
	recIn         = "IN"
	recOut        = "OUT"
)

// EncodeSnapshot renders the chain in the line oriented snapshot layout.
func EncodeSnapshot(difficulty uint, blocks []Block) []byte {
	var buf bytes.Buffer
	line := func(format string, args ...any) {
		buf.WriteString(strings.TrimRight(fmt.Sprintf(format, args...), " "))
		buf.WriteByte('\n')
	}

	line("%s %d", recDifficulty, difficulty)
	line("%s %d", recBlocks, len(blocks))

	for _, b := range blocks {
		line("%s %d %d %d %d", recBlock, b.index, b.timestamp, b.nonce, b.difficulty)
		line("%s %s", recPrev, b.prevHash)
		line("%s %s", recHash, b.hash)
		line("%s %d", recTxCount, len(b.trans))

		for _, tx := range b.trans {
			line("%s %s %d %d", recTx, tx.id, len(tx.inputs), len(tx.outputs))
			for _, in := range tx.inputs {
				line("%s %s %d %s", recIn, in.TxID, in.OutputIndex, in.Signature)
			}
			for _, out := range tx.outputs {
				line("%s %d %s", recOut, out.Amount, out.Address)
			}
		}
	}

	return buf.Bytes()
}

// DecodeSnapshot parses the snapshot layout. The blocks are returned with
// their recorded hashes and still need to be validated by the caller.
func DecodeSnapshot(data []byte) (uint, []Block, error) {
	d := decoder{scanner: bufio.NewScanner(bytes.NewReader(data))}
	d.scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	difficulty, err := d.uintField(recDifficulty)
	if err != nil {
		return 0, nil, err
	}

	count, err := d.uintField(recBlocks)
	if err != nil {
		return 0, nil, err
	}

	var blocks []Block
	for {
		fields, ok, err := d.next()
		if err != nil {
			return 0, nil, err
		}
		if !ok {
			break
		}

		wb, err := d.block(fields)
		if err != nil {
			return 0, nil, err
		}

		b, err := wb.toBlock()
		if err != nil {
			return 0, nil, fmt.Errorf("snapshot line %d: %w: %w", d.line, err, ErrChainIntegrity)
		}
		blocks = append(blocks, b)
	}

	if uint64(len(blocks)) != count {
		return 0, nil, fmt.Errorf("snapshot declares %d blocks, found %d: %w", count, len(blocks), ErrChainIntegrity)
	}

	return uint(difficulty), blocks, nil
}

// =============================================================================

type decoder struct {
	scanner *bufio.Scanner
	line    int
}

// next returns the fields of the next non empty line.
func (d *decoder) next() ([]string, bool, error) {
	for d.scanner.Scan() {
		d.line++
		fields := strings.Fields(d.scanner.Text())
		if len(fields) > 0 {
			return fields, true, nil
		}
	}

	if err := d.scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("snapshot read: %w", err)
	}
	return nil, false, nil
}

// expect returns the fields of the next line which must start with the
// keyword and carry at least min fields after it.
func (d *decoder) expect(keyword string, min int) ([]string, error) {
	fields, ok, err := d.next()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("snapshot: unexpected end, want %s: %w", keyword, ErrChainIntegrity)
	}
	if fields[0] != keyword || len(fields)-1 < min {
		return nil, d.malformed(keyword)
	}
	return fields[1:], nil
}

func (d *decoder) uintField(keyword string) (uint64, error) {
	fields, err := d.expect(keyword, 1)
	if err != nil {
		return 0, err
	}
	return d.parseUint(keyword, fields[0])
}

func (d *decoder) block(fields []string) (WireBlock, error) {
	if fields[0] != recBlock || len(fields) != 5 {
		return WireBlock{}, d.malformed(recBlock)
	}

	var wb WireBlock
	var err error
	if wb.Index, err = d.parseUint(recBlock, fields[1]); err != nil {
		return WireBlock{}, err
	}
	if wb.Timestamp, err = strconv.ParseInt(fields[2], 10, 64); err != nil {
		return WireBlock{}, d.malformed(recBlock)
	}
	if wb.Nonce, err = d.parseUint(recBlock, fields[3]); err != nil {
		return WireBlock{}, err
	}
	difficulty, err := d.parseUint(recBlock, fields[4])
	if err != nil {
		return WireBlock{}, err
	}
	wb.Difficulty = uint(difficulty)

	prev, err := d.expect(recPrev, 1)
	if err != nil {
		return WireBlock{}, err
	}
	wb.PreviousHash = prev[0]

	hash, err := d.expect(recHash, 1)
	if err != nil {
		return WireBlock{}, err
	}
	wb.Hash = hash[0]

	txCount, err := d.uintField(recTxCount)
	if err != nil {
		return WireBlock{}, err
	}

	// Counts come from the file so they only bound the loops, never an
	// allocation.
	wb.Transactions = []WireTx{}
	for i := uint64(0); i < txCount; i++ {
		wtx, err := d.tx()
		if err != nil {
			return WireBlock{}, err
		}
		wb.Transactions = append(wb.Transactions, wtx)
	}

	return wb, nil
}

func (d *decoder) tx() (WireTx, error) {
	fields, err := d.expect(recTx, 3)
	if err != nil {
		return WireTx{}, err
	}

	inCount, err := d.parseUint(recTx, fields[1])
	if err != nil {
		return WireTx{}, err
	}
	outCount, err := d.parseUint(recTx, fields[2])
	if err != nil {
		return WireTx{}, err
	}

	wtx := WireTx{
		ID:      fields[0],
		Inputs:  []TxInput{},
		Outputs: []TxOutput{},
	}

	for i := uint64(0); i < inCount; i++ {
		in, err := d.expect(recIn, 2)
		if err != nil {
			return WireTx{}, err
		}
		idx, err := strconv.Atoi(in[1])
		if err != nil {
			return WireTx{}, d.malformed(recIn)
		}

		var sig string
		if len(in) > 2 {
			sig = in[2]
		}
		wtx.Inputs = append(wtx.Inputs, TxInput{TxID: in[0], OutputIndex: idx, Signature: sig})
	}

	for i := uint64(0); i < outCount; i++ {
		out, err := d.expect(recOut, 2)
		if err != nil {
			return WireTx{}, err
		}
		amount, err := d.parseUint(recOut, out[0])
		if err != nil {
			return WireTx{}, err
		}
		wtx.Outputs = append(wtx.Outputs, TxOutput{Amount: amount, Address: out[1]})
	}

	return wtx, nil
}

func (d *decoder) parseUint(keyword string, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, d.malformed(keyword)
	}
	return v, nil
}

func (d *decoder) malformed(keyword string) error {
	return fmt.Errorf("snapshot line %d: malformed %s record: %w", d.line, keyword, ErrChainIntegrity)
}
