package bars

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz/lzma"

	"github.com/fxdaemon/fxBench-sub005/market"
)

// bi5Record is one tick in a Dukascopy hour archive: milliseconds from the
// hour start, ask and bid as scaled integers, then the two volumes.
const bi5RecordSize = 20

// ReadBI5 decodes one lzma-compressed Dukascopy .bi5 hour archive into ticks.
// hourStart is the UTC hour the archive covers; scale converts the integer
// prices (100000 for a five-decimal symbol, 1000 for JPY pairs).
func ReadBI5(r io.Reader, symbol string, hourStart time.Time, scale float64) ([]market.Tick, error) {
	if scale <= 0 {
		return nil, errors.New("bi5 import: scale must be positive")
	}
	lz, err := lzma.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "bi5 import: open lzma stream")
	}

	var (
		out []market.Tick
		buf [bi5RecordSize]byte
	)
	for {
		if _, err := io.ReadFull(lz, buf[:]); err != nil {
			if err == io.EOF {
				break
			}
			if err == io.ErrUnexpectedEOF {
				return nil, errors.New("bi5 import: truncated record")
			}
			return nil, errors.Wrap(err, "bi5 import: read record")
		}

		ms := binary.BigEndian.Uint32(buf[0:4])
		ask := binary.BigEndian.Uint32(buf[4:8])
		bid := binary.BigEndian.Uint32(buf[8:12])

		out = append(out, market.Tick{
			Symbol: symbol,
			Time:   hourStart.Add(time.Duration(ms) * time.Millisecond),
			Bid:    float64(bid) / scale,
			Ask:    float64(ask) / scale,
		})
	}
	return out, nil
}

// ImportBI5 reads one .bi5 hour archive and aggregates its ticks into bars of
// the given interval.
func ImportBI5(r io.Reader, symbol string, hourStart time.Time, interval time.Duration, scale float64) ([]Bar, error) {
	ticks, err := ReadBI5(r, symbol, hourStart, scale)
	if err != nil {
		return nil, err
	}

	var out []Bar
	for _, tick := range ticks {
		start := tick.Time.Truncate(interval)
		if n := len(out); n > 0 && out[n-1].Start.Equal(start) {
			out[n-1].merge(tick)
		} else {
			out = append(out, NewBar(tick, interval))
		}
	}
	return out, nil
}
