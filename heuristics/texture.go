// Copyright 2026 Fo3dump. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package heuristics

import (
	"hash/fnv"
	"sort"
	"sync"

	"github.com/fo3dump/x360core/rtctx"
	"github.com/fo3dump/x360core/scan"
)

// texture struct sizes.
const (
	niPixelDataSize      = 116
	niSourceTextureSize  = 72
	textureMinStructSize = niSourceTextureSize
)

// texture validation ceilings.
const (
	texFormatMax       = 13
	texMaxMipLevels    = 16
	texMaxFaces        = 6
	texMinDim          = 4
	texMaxDim          = 4096
	texMaxTotalBytes   = 64 << 20
	texZeroPrefixCheck = 256
)

// TextureFormat classifies the pixel-stride family a format enum value
// belongs to, for the non-POT uncompressed stride/bpp check.
type TextureFormat int

// Recognized format families.
const (
	FormatUnknown  TextureFormat = iota
	FormatRGB                    // 3B/24bpp
	FormatRGBA                   // 4B/32bpp
	FormatPalette8               // 1B/8bpp
	Format16Bit                  // 2B/16bpp
	FormatDXT1
	FormatDXT3
	FormatDXT5
)

// NiPixelFormat enum values, Gamebryo ordering.
const (
	pixelFormatRGB      = 0
	pixelFormatRGBA     = 1
	pixelFormatPal      = 2
	pixelFormatPalA     = 3
	PixelFormatDXT1     = 4
	PixelFormatDXT3     = 5
	PixelFormatDXT5     = 6
	pixelFormatBump     = 8
	pixelFormatBumpLuma = 9
)

// classifyFormat maps a raw NiPixelFormat enum value to its stride
// family.
func classifyFormat(v uint32) TextureFormat {
	switch v {
	case pixelFormatRGB:
		return FormatRGB
	case pixelFormatRGBA:
		return FormatRGBA
	case pixelFormatPal, pixelFormatPalA:
		return FormatPalette8
	case PixelFormatDXT1:
		return FormatDXT1
	case PixelFormatDXT3:
		return FormatDXT3
	case PixelFormatDXT5:
		return FormatDXT5
	case pixelFormatBump, pixelFormatBumpLuma:
		return Format16Bit
	default:
		return FormatUnknown
	}
}

func isCompressed(f TextureFormat) bool {
	return f == FormatDXT1 || f == FormatDXT3 || f == FormatDXT5
}

func bytesPerPixel(f TextureFormat) (uint32, bool) {
	switch f {
	case FormatRGB:
		return 3, true
	case FormatRGBA:
		return 4, true
	case FormatPalette8:
		return 1, true
	case Format16Bit:
		return 2, true
	default:
		return 0, false
	}
}

// bitsPerPixel reports the per-pixel bit width of a format family,
// including the block-compressed ones (DXT1 packs 4bpp, DXT3/5 8bpp).
func bitsPerPixel(f TextureFormat) uint32 {
	switch f {
	case FormatDXT1:
		return 4
	case FormatDXT3, FormatDXT5:
		return 8
	default:
		bpp, ok := bytesPerPixel(f)
		if !ok {
			return 0
		}
		return bpp * 8
	}
}

// ExtractedTexture is one deduplicated NiPixelData candidate, possibly
// enriched with its source filename.
type ExtractedTexture struct {
	SourceOffset uint32
	SourceVA     uint32
	Format       uint32
	Width        uint32
	Height       uint32
	MipLevels    uint32
	FaceCount    uint32
	BitsPerPixel uint32
	DataSize     uint32
	DataHash     uint64
	IsCompressed bool

	FileName    string
	HasFileName bool

	pixelsVA uint32
}

// textureSourceCandidate is one accepted NiSourceTexture, kept around
// only for the filename-enrichment cross-reference pass.
type textureSourceCandidate struct {
	pixelDataVA uint32
	fileName    string
	hasFileName bool
}

// ScanTextures runs the combined NiPixelData/NiSourceTexture
// scanner, then cross-references collected NiSourceTexture candidates
// by NiPixelData pointer to attach filenames.
func ScanTextures(ctx *rtctx.Context) []ExtractedTexture {
	gate := scan.NewDedupGate()
	bag := scan.NewResultBag[ExtractedTexture](gate)

	var srcMu sync.Mutex
	var sources []textureSourceCandidate

	test := func(chunk []byte, off uint32) bool {
		return textureFastFilter(chunk, off)
	}
	process := func(chunk []byte, off uint32, fileOffset uint32) {
		if src, ok := trySourceTexture(ctx, chunk, off); ok {
			srcMu.Lock()
			sources = append(sources, src)
			srcMu.Unlock()
		}
		if tex, ok := tryPixelData(ctx, chunk, off, fileOffset); ok {
			bag.TryAdd(tex.DataHash, tex)
		}
	}

	scan.Run(ctx.ReadBytes, ctx.Map, scan.Options{MinStructSize: textureMinStructSize, MaxWorkers: ctx.MaxWorkers}, test, process)

	results := bag.Results()
	enrichFileNames(results, sources)

	sort.Slice(results, func(i, j int) bool { return results[i].SourceOffset < results[j].SourceOffset })
	return results
}

// textureFastFilter is the shared prefilter on ref_count at +4.
func textureFastFilter(chunk []byte, off uint32) bool {
	if off+8 > uint32(len(chunk)) {
		return false
	}
	refCount := be32(chunk, off+4)
	return refCount > 0 && refCount <= meshMaxRefCount
}

func trySourceTexture(ctx *rtctx.Context, chunk []byte, off uint32) (textureSourceCandidate, bool) {
	if off+niSourceTextureSize > uint32(len(chunk)) {
		return textureSourceCandidate{}, false
	}
	pixelDataPtr := be32(chunk, off+60)
	if pixelDataPtr == 0 || !ctx.IsValidPointer(pixelDataPtr) {
		return textureSourceCandidate{}, false
	}
	src := textureSourceCandidate{pixelDataVA: pixelDataPtr}

	// The filename is a NiFixedString: a char* at +48.
	if namePtr := be32(chunk, off+48); namePtr != 0 && ctx.IsValidPointer(namePtr) {
		if nameOffset, ok := ctx.VAToOffset(namePtr); ok {
			if name, ok := readCString(ctx, nameOffset, 255); ok {
				src.fileName, src.hasFileName = name, true
			}
		}
	}
	return src, true
}

func tryPixelData(ctx *rtctx.Context, chunk []byte, off uint32, fileOffset uint32) (ExtractedTexture, bool) {
	if off+niPixelDataSize > uint32(len(chunk)) {
		return ExtractedTexture{}, false
	}
	formatRaw := be32(chunk, off+12)
	if formatRaw > texFormatMax {
		return ExtractedTexture{}, false
	}
	mipLevels := be32(chunk, off+96)
	if mipLevels == 0 || mipLevels > texMaxMipLevels {
		return ExtractedTexture{}, false
	}
	pixelsPtr := be32(chunk, off+80)
	widthArrPtr := be32(chunk, off+84)
	heightArrPtr := be32(chunk, off+88)
	if !ctx.IsValidPointer(pixelsPtr) || !ctx.IsValidPointer(widthArrPtr) || !ctx.IsValidPointer(heightArrPtr) {
		return ExtractedTexture{}, false
	}
	faceCount := be32(chunk, off+108)
	if faceCount > texMaxFaces {
		return ExtractedTexture{}, false
	}
	if faceCount == 0 {
		faceCount = 1
	}

	width, ok := readTextureDim(ctx, widthArrPtr)
	if !ok {
		return ExtractedTexture{}, false
	}
	height, ok := readTextureDim(ctx, heightArrPtr)
	if !ok {
		return ExtractedTexture{}, false
	}

	format := classifyFormat(formatRaw)
	isPOT := isPowerOfTwo(width) && isPowerOfTwo(height)

	if isCompressed(format) {
		if !isPOT || width%4 != 0 || height%4 != 0 {
			return ExtractedTexture{}, false
		}
	} else if !isPOT {
		if mipLevels != 1 || faceCount != 1 {
			return ExtractedTexture{}, false
		}
		if _, ok := bytesPerPixel(format); !ok {
			return ExtractedTexture{}, false
		}
	}

	offsetArrPtr := be32(chunk, off+92)
	total, ok := validateTotalDataSize(ctx, format, width, height, mipLevels, faceCount, offsetArrPtr, isPOT)
	if !ok || total > texMaxTotalBytes {
		return ExtractedTexture{}, false
	}

	if !firstBytesNonZero(ctx, pixelsPtr, texZeroPrefixCheck) {
		return ExtractedTexture{}, false
	}

	tex := ExtractedTexture{
		SourceOffset: fileOffset,
		SourceVA:     fileOffsetToVA(ctx, fileOffset),
		Format:       formatRaw,
		Width:        width,
		Height:       height,
		MipLevels:    mipLevels,
		FaceCount:    faceCount,
		BitsPerPixel: bitsPerPixel(format),
		DataSize:     total,
		IsCompressed: isCompressed(format),
		pixelsVA:     pixelsPtr,
	}
	tex.DataHash = textureDedupHash(ctx, tex)
	return tex, true
}

func readTextureDim(ctx *rtctx.Context, arrPtr uint32) (uint32, bool) {
	offset, ok := ctx.VAToOffset(arrPtr)
	if !ok {
		return 0, false
	}
	v, ok := ctx.ReadU32BE(offset)
	if !ok || v < texMinDim || v > texMaxDim {
		return 0, false
	}
	return v, true
}

func isPowerOfTwo(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}

// mipSize computes one mip level's uncompressed or block-compressed
// byte size at the given dims.
func mipSize(format TextureFormat, w, h uint32) uint32 {
	if isCompressed(format) {
		blockBytes := uint32(8)
		if format != FormatDXT1 {
			blockBytes = 16
		}
		blocksW := (w + 3) / 4
		blocksH := (h + 3) / 4
		return blocksW * blocksH * blockBytes
	}
	bpp, ok := bytesPerPixel(format)
	if !ok {
		return 0
	}
	return w * h * bpp
}

// validateTotalDataSize computes the expected data size from format x
// dims x mips x faces and cross-checks against the last entry of the
// offset array: POT paths accept any value within [mip0_size,
// 2*expected]; non-POT requires exact match. Returns the
// computed expected size.
func validateTotalDataSize(ctx *rtctx.Context, format TextureFormat, width, height, mipLevels, faceCount uint32, offsetArrPtr uint32, isPOT bool) (uint32, bool) {
	if !ctx.IsValidPointer(offsetArrPtr) {
		return 0, false
	}
	offset, ok := ctx.VAToOffset(offsetArrPtr)
	if !ok {
		return 0, false
	}

	var mip0Size, total uint32
	w, h := width, height
	for m := uint32(0); m < mipLevels; m++ {
		size := mipSize(format, w, h)
		if m == 0 {
			mip0Size = size
		}
		total += size
		if w > 1 {
			w /= 2
		}
		if h > 1 {
			h /= 2
		}
	}
	total *= faceCount
	mip0Size *= faceCount

	lastEntry, ok := ctx.ReadU32BE(offset + (mipLevels*faceCount)*4)
	if !ok {
		return 0, false
	}

	if isPOT {
		if lastEntry < mip0Size || lastEntry > 2*total {
			return 0, false
		}
		return total, true
	}
	if lastEntry != total {
		return 0, false
	}
	return total, true
}

// firstBytesNonZero rejects unmapped pixel storage: an all-zero prefix
// means the dump never captured the texture bits.
func firstBytesNonZero(ctx *rtctx.Context, ptrVA uint32, count uint32) bool {
	offset, ok := ctx.VAToOffset(ptrVA)
	if !ok {
		return false
	}
	buf, ok := ctx.ReadBytes(offset, count)
	if !ok {
		return false
	}
	for _, b := range buf {
		if b != 0 {
			return true
		}
	}
	return false
}

// textureDedupHash hashes the first 64 pixel bytes mixed with the
// total data length.
func textureDedupHash(ctx *rtctx.Context, tex ExtractedTexture) uint64 {
	h := fnv.New64a()
	if pixOffset, ok := ctx.VAToOffset(tex.pixelsVA); ok {
		if data, ok := ctx.ReadBytes(pixOffset, 64); ok {
			h.Write(data)
		}
	}
	h.Write([]byte{
		byte(tex.DataSize >> 24), byte(tex.DataSize >> 16),
		byte(tex.DataSize >> 8), byte(tex.DataSize),
	})
	return h.Sum64()
}

// enrichFileNames matches sources by NiPixelData pointer against each
// extracted texture's VA, attaching the first matching filename.
func enrichFileNames(results []ExtractedTexture, sources []textureSourceCandidate) {
	byVA := make(map[uint32]int, len(results))
	for i, r := range results {
		byVA[r.SourceVA] = i
	}
	for _, src := range sources {
		if !src.hasFileName {
			continue
		}
		idx, ok := byVA[src.pixelDataVA]
		if !ok || results[idx].HasFileName {
			continue
		}
		results[idx].FileName = src.fileName
		results[idx].HasFileName = true
	}
}
