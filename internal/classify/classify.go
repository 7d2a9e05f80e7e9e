// Package classify decides whether an installed file should carry execute
// permission. A file is executable when it is a native Mach-O or ELF image,
// or when it is an interpreter script that is already marked executable.
package classify

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"encoding/binary"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"mvdan.cc/sh/v3/fileutil"

	"github.com/kclejeune/kegscrub/internal/fsutil"
)

// headerSize is enough for a magic number and a reasonably long shebang.
const headerSize = 256

// maxFatArches bounds the architecture count of a universal binary. Java
// class files share the fat magic but carry their version in the same
// word, which is always far larger.
const maxFatArches = 20

type Format string

const (
	FormatUnknown Format = "unknown"
	FormatMachO   Format = "mach-o"
	FormatELF     Format = "elf"
	FormatScript  Format = "script"
	FormatData    Format = "data"
)

// Classifier reports whether a path is executable. Implementations must not
// fail: a file whose format cannot be determined is non-executable.
type Classifier interface {
	IsExecutable(path string) bool
}

// Result describes a sniffed file.
type Result struct {
	Format Format
	// Interpreter is the first word of a shebang line, if any.
	Interpreter string
	// Shell is set when the interpreter is a shell recognised by mvdan/sh.
	Shell string
}

// Sniffer classifies files by reading their header.
type Sniffer struct {
	FS fsutil.FS
}

func New(fsys fsutil.FS) *Sniffer {
	return &Sniffer{FS: fsys}
}

func (s *Sniffer) IsExecutable(path string) bool {
	res, mode, err := s.Sniff(path)
	if err != nil {
		slog.Debug("cannot classify file, treating as non-executable", "path", path, "error", err)
		return false
	}
	switch res.Format {
	case FormatMachO, FormatELF:
		return true
	case FormatScript:
		exec := mode&0o111 != 0
		slog.Debug("classified script",
			"path", path, "interpreter", res.Interpreter, "shell", res.Shell, "executable", exec)
		return exec
	default:
		return false
	}
}

// Sniff reads the header of path and returns its format together with the
// file's current mode.
func (s *Sniffer) Sniff(path string) (Result, fs.FileMode, error) {
	f, err := s.FS.Open(path)
	if err != nil {
		return Result{Format: FormatUnknown}, 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{Format: FormatUnknown}, 0, err
	}

	buf := make([]byte, headerSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Result{Format: FormatUnknown}, info.Mode(), err
	}
	return Detect(buf[:n]), info.Mode(), nil
}

// Detect classifies a file header.
func Detect(header []byte) Result {
	switch {
	case isMachO(header):
		return Result{Format: FormatMachO}
	case bytes.HasPrefix(header, []byte(elf.ELFMAG)):
		return Result{Format: FormatELF}
	case bytes.HasPrefix(header, []byte("#!")):
		interp := interpreter(header)
		if interp == "" {
			return Result{Format: FormatData}
		}
		return Result{
			Format:      FormatScript,
			Interpreter: interp,
			Shell:       fileutil.Shebang(header),
		}
	default:
		return Result{Format: FormatData}
	}
}

func isMachO(header []byte) bool {
	if len(header) < 4 {
		return false
	}
	be := binary.BigEndian.Uint32(header)
	le := binary.LittleEndian.Uint32(header)
	if be == macho.MagicFat {
		// Fat headers are always big endian.
		if len(header) < 8 {
			return false
		}
		n := binary.BigEndian.Uint32(header[4:8])
		return n > 0 && n <= maxFatArches
	}
	for _, m := range []uint32{macho.Magic32, macho.Magic64} {
		if be == m || le == m {
			return true
		}
	}
	return false
}

// interpreter returns the first word after "#!", or "" when the directive
// is empty.
func interpreter(header []byte) string {
	line := header[2:]
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
