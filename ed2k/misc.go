package ed2k

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Ext returns a file name's extension, lower-cased and without the leading
// dot, or "" if it has none.
func Ext(name string) string {
	if name == "" {
		return ""
	}
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IPv4ToInt32LE parses a dotted-quad address into the little-endian u32 form
// the wire protocol uses for server and client addresses.
func IPv4ToInt32LE(ipv4 string) (uint32, error) {
	parts := strings.Split(ipv4, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("invalid ipv4: %q", ipv4)
	}
	vals := make([]uint64, 4)
	for i := range parts {
		v, err := strconv.ParseUint(parts[i], 10, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid ipv4: %q", ipv4)
		}
		vals[i] = v
	}
	return uint32(vals[0]) + uint32(vals[1])*0x100 + uint32(vals[2])*0x10000 + uint32(vals[3])*0x1000000, nil
}

var fileTypeByExt = buildFileTypeIndex()

func buildFileTypeIndex() map[string]string {
	groups := map[string][]string{
		"Video": {"3gp", "aaf", "asf", "avchd", "avi", "fla", "flv", "m1v", "m2v", "m4v",
			"mp4", "mpg", "mpe", "mpeg", "mov", "mkv", "rm", "svi"},
		"Audio": {"aiff", "au", "wav", "flac", "la", "pac", "m4a", "ape", "rka", "shn",
			"tta", "wv", "wma", "brstm", "amr", "mp2", "mp3", "ogg", "aac", "mpc",
			"ra", "ots", "vox", "voc", "mid", "mod", "s3m", "xm", "it"},
		"Image": {"cr2", "pdn", "pgm", "pict", "bmp", "png", "dib", "djvu", "gif", "psd",
			"pdd", "icns", "ico", "rle", "tga", "jpeg", "jpg", "tiff", "tif", "jp2",
			"jps", "mng", "xbm", "xcf", "pcx"},
		"Pro": {"7z", "ace", "arc", "arj", "bzip2", "cab", "gzip", "rar", "tar", "zip",
			"iso", "nrg", "img", "adf", "dmg", "cue", "bin", "cif", "ccd", "sub", "raw"},
	}
	idx := make(map[string]string)
	for kind, exts := range groups {
		for _, e := range exts {
			idx[e] = kind
		}
	}
	return idx
}

// GetFileType classifies a file name by extension into one of the coarse
// categories a shared-file tag list advertises, or "" if unrecognized.
func GetFileType(name string) string {
	return fileTypeByExt[Ext(name)]
}

// IsProtocol reports whether b is one of the three valid frame protocol
// bytes.
func IsProtocol(b uint8) bool {
	return b == PrED2K || b == PrEMule || b == PrZlib
}
