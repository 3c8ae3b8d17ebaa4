package volume

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/coocood/freecache"
	"github.com/golang/snappy"

	"obliqueslice/internal/models"
)

// BlockGrid stores every map as snappy compressed cubic blocks. Reading a
// single voxel decodes its whole block, so decoded blocks are kept in a
// byte cache. Per-voxel access is still expensive and renderers should read
// whole maps through MapData.
type BlockGrid struct {
	gridBase
	blockSize  int
	nbi        int
	nbj        int
	nbk        int
	components int
	blocks     map[blockKey][]byte
	cache      *freecache.Cache

	voxelReads  atomic.Int64
	blockDecode atomic.Int64
}

type blockKey struct {
	mapIndex   int
	bi, bj, bk int
}

func (k blockKey) bytes() []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:], uint32(k.mapIndex))
	binary.LittleEndian.PutUint32(b[4:], uint32(k.bi))
	binary.LittleEndian.PutUint32(b[8:], uint32(k.bj))
	binary.LittleEndian.PutUint32(b[12:], uint32(k.bk))
	return b
}

// NewBlockGrid compresses a volume into blocks of blockSize voxels per
// side. cacheBytes sizes the decoded block cache; freecache enforces a
// minimum of 512 KB and skips blocks larger than 1/1024 of the cache.
func NewBlockGrid(name string, vol *models.Volume, affine *Affine, blockSize, cacheBytes int) (*BlockGrid, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", blockSize)
	}
	dense, err := NewDenseGrid(name, vol, affine)
	if err != nil {
		return nil, err
	}

	g := &BlockGrid{
		blockSize:  blockSize,
		nbi:        (vol.Width + blockSize - 1) / blockSize,
		nbj:        (vol.Height + blockSize - 1) / blockSize,
		nbk:        (vol.Depth + blockSize - 1) / blockSize,
		components: vol.Kind.Components(),
		blocks:     make(map[blockKey][]byte),
		cache:      freecache.NewCache(cacheBytes),
	}
	g.init(name, vol, dense.affine)
	g.voxel = g.readVoxel
	g.mapData = g.MapData

	for m := 0; m < vol.Maps; m++ {
		for bk := 0; bk < g.nbk; bk++ {
			for bj := 0; bj < g.nbj; bj++ {
				for bi := 0; bi < g.nbi; bi++ {
					key := blockKey{m, bi, bj, bk}
					g.blocks[key] = snappy.Encode(nil, g.encodeBlock(vol, key))
				}
			}
		}
	}
	return g, nil
}

func (g *BlockGrid) blockLen() int {
	return g.blockSize * g.blockSize * g.blockSize * g.components
}

// encodeBlock serializes one block, padding voxels beyond the grid with 0.
func (g *BlockGrid) encodeBlock(vol *models.Volume, key blockKey) []byte {
	buf := make([]byte, g.blockLen()*4)
	n := 0
	bs := g.blockSize
	for z := 0; z < bs; z++ {
		for y := 0; y < bs; y++ {
			for x := 0; x < bs; x++ {
				i, j, k := key.bi*bs+x, key.bj*bs+y, key.bk*bs+z
				for c := 0; c < g.components; c++ {
					var v float32
					if i < vol.Width && j < vol.Height && k < vol.Depth {
						v = vol.At(i, j, k, key.mapIndex, c)
					}
					binary.LittleEndian.PutUint32(buf[n:], math.Float32bits(v))
					n += 4
				}
			}
		}
	}
	return buf
}

// block returns the decoded bytes of a block, going through the cache.
func (g *BlockGrid) block(key blockKey) ([]byte, error) {
	ck := key.bytes()
	if data, err := g.cache.Get(ck); err == nil {
		return data, nil
	} else if err != freecache.ErrNotFound {
		return nil, err
	}
	compressed, ok := g.blocks[key]
	if !ok {
		return nil, fmt.Errorf("block %v: %w", key, ErrOutOfRange)
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("unable to decode block %v: %w", key, err)
	}
	g.blockDecode.Add(1)
	// a full cache only costs a later decode
	_ = g.cache.Set(ck, data, 0)
	return data, nil
}

func (g *BlockGrid) readVoxel(i, j, k, mapIndex, component int) float32 {
	g.voxelReads.Add(1)
	bs := g.blockSize
	data, err := g.block(blockKey{mapIndex, i / bs, j / bs, k / bs})
	if err != nil {
		panic(fmt.Sprintf("volume: voxel (%d,%d,%d) of %q: %v", i, j, k, g.name, err))
	}
	x, y, z := i%bs, j%bs, k%bs
	off := (((z*bs+y)*bs+x)*g.components + component) * 4
	return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
}

// MapData decodes every block of a map into one flat array.
func (g *BlockGrid) MapData(mapIndex int) ([]float32, error) {
	if !g.validMap(mapIndex) {
		return nil, fmt.Errorf("map data %d: %w", mapIndex, ErrOutOfRange)
	}
	d := g.dims
	out := make([]float32, d.I*d.J*d.K*g.components)
	bs := g.blockSize
	for bk := 0; bk < g.nbk; bk++ {
		for bj := 0; bj < g.nbj; bj++ {
			for bi := 0; bi < g.nbi; bi++ {
				data, err := g.block(blockKey{mapIndex, bi, bj, bk})
				if err != nil {
					return nil, err
				}
				for z := 0; z < bs; z++ {
					k := bk*bs + z
					if k >= d.K {
						break
					}
					for y := 0; y < bs; y++ {
						j := bj*bs + y
						if j >= d.J {
							break
						}
						for x := 0; x < bs; x++ {
							i := bi*bs + x
							if i >= d.I {
								break
							}
							src := ((z*bs+y)*bs + x) * g.components
							dst := (i + j*d.I + k*d.I*d.J) * g.components
							for c := 0; c < g.components; c++ {
								out[dst+c] = math.Float32frombits(binary.LittleEndian.Uint32(data[(src+c)*4:]))
							}
						}
					}
				}
			}
		}
	}
	return out, nil
}

// VoxelReads returns how many single voxels have been read.
func (g *BlockGrid) VoxelReads() int64 {
	return g.voxelReads.Load()
}

// BlockDecodes returns how many blocks have been decompressed.
func (g *BlockGrid) BlockDecodes() int64 {
	return g.blockDecode.Load()
}

// CompressedBytes returns the total size of the compressed blocks.
func (g *BlockGrid) CompressedBytes() int {
	n := 0
	for _, b := range g.blocks {
		n += len(b)
	}
	return n
}
