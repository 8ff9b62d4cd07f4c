package reader

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/shimkit/internal/buf"
	"github.com/joshuapare/shimkit/internal/format"
	"github.com/joshuapare/shimkit/internal/testutil"
	"github.com/joshuapare/shimkit/internal/testutil/hivegen"
	"github.com/joshuapare/shimkit/pkg/types"
)

func sampleTree() *hivegen.Key {
	root := &hivegen.Key{Name: "ROOT"}
	root.Path("Select").Set("Current", hivegen.RegDWORD, hivegen.DWORD(2))
	env := root.Path(`ControlSet002\Control\Session Manager\Environment`)
	env.Set("PROCESSOR_ARCHITECTURE", hivegen.RegSZ, hivegen.String("x86"))
	root.Path(`ControlSet001\Control`).Set("Inline", hivegen.RegBinary, []byte{1, 2, 3})
	root.Path("Ünïcode")
	return root
}

func openSample(t *testing.T, opts Options) *Reader {
	t.Helper()
	r, err := OpenBytes(hivegen.Build(sampleTree(), hivegen.Options{}), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestOpenRejectsNonHive(t *testing.T) {
	_, err := OpenBytes(bytes.Repeat([]byte{0xAA}, 0x2000), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotHive)

	_, err = OpenBytes([]byte("regf"), Options{})
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindFormat))
}

func TestOpenFromDisk(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "SYSTEM", hivegen.Build(sampleTree(), hivegen.Options{}))
	r, err := Open(path, Options{})
	require.NoError(t, err)
	defer r.Close()

	id, err := r.Find(`Select`)
	require.NoError(t, err)
	v, err := r.GetValue(id, "current")
	require.NoError(t, err)
	cur, err := r.ValueDWORD(v)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), cur)
}

func TestInfo(t *testing.T) {
	r := openSample(t, Options{})
	info := r.Info()
	assert.False(t, info.Dirty)
	assert.True(t, info.ChecksumOK)
	assert.Equal(t, uint32(1), info.MajorVersion)
	assert.Equal(t, uint32(5), info.MinorVersion)
	assert.GreaterOrEqual(t, info.HBINs, 1)
	assert.Equal(t, uint32(len(r.Bytes())-format.HeaderSize), info.HiveBinsDataSize)
}

func TestInfoDirtyAndBadChecksum(t *testing.T) {
	img := hivegen.Build(sampleTree(), hivegen.Options{PrimarySequence: 8, SecondarySequence: 7})
	r, err := OpenBytes(img, Options{})
	require.NoError(t, err)
	assert.True(t, r.Info().Dirty)
	assert.True(t, r.Info().ChecksumOK)

	bad := bytes.Clone(img)
	buf.PutU32LE(bad, format.REGFCheckSumOffset, 0x12345678)
	r, err = OpenBytes(bad, Options{})
	require.NoError(t, err)
	assert.False(t, r.Info().ChecksumOK)
}

func TestFindPathForms(t *testing.T) {
	r := openSample(t, Options{})
	want, err := r.Find(`ControlSet002\Control\Session Manager\Environment`)
	require.NoError(t, err)

	for _, p := range []string{
		`HKLM\SYSTEM\ControlSet002\Control\Session Manager\Environment`,
		`HKEY_LOCAL_MACHINE\SYSTEM\controlset002\control\session manager\environment`,
		`ROOT\ControlSet002\Control\Session Manager\Environment`,
		`/ControlSet002/Control/Session Manager/Environment/`,
	} {
		got, err := r.Find(p)
		require.NoError(t, err, p)
		assert.Equal(t, want, got, p)
	}

	root, err := r.Root()
	require.NoError(t, err)
	got, err := r.Find(`HKLM\SYSTEM`)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestFindMissing(t *testing.T) {
	r := openSample(t, Options{})
	_, err := r.Find(`ControlSet003\Control`)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindNotFound))
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSubkeyNames(t *testing.T) {
	r := openSample(t, Options{})
	root, err := r.Root()
	require.NoError(t, err)
	names, err := r.SubkeyNames(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"Select", "ControlSet002", "ControlSet001", "Ünïcode"}, names)

	id, err := r.Find("ünïcode")
	require.NoError(t, err)
	name, err := r.KeyName(id)
	require.NoError(t, err)
	assert.Equal(t, "Ünïcode", name)
}

func TestValueDecoding(t *testing.T) {
	r := openSample(t, Options{})

	env, err := r.Find(`ControlSet002\Control\Session Manager\Environment`)
	require.NoError(t, err)
	v, err := r.GetValue(env, "processor_architecture")
	require.NoError(t, err)
	s, err := r.ValueString(v)
	require.NoError(t, err)
	assert.Equal(t, "x86", s)
	_, err = r.ValueDWORD(v)
	assert.Error(t, err)

	ctl, err := r.Find(`ControlSet001\Control`)
	require.NoError(t, err)
	v, err = r.GetValue(ctl, "Inline")
	require.NoError(t, err)
	typ, err := r.ValueType(v)
	require.NoError(t, err)
	assert.Equal(t, types.REG_BINARY, typ)
	b, err := r.ValueBytes(v)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)

	_, err = r.GetValue(ctl, "Missing")
	assert.True(t, types.IsKind(err, types.ErrKindNotFound))
}

func TestValueBytesSizes(t *testing.T) {
	medium := bytes.Repeat([]byte{0x5A}, 3000)
	big := make([]byte, 3*format.DBChunkSize+100)
	for i := range big {
		big[i] = byte(i % 251)
	}
	root := &hivegen.Key{Name: "ROOT"}
	root.Path("Data").
		Set("Empty", hivegen.RegBinary, nil).
		Set("Medium", hivegen.RegBinary, medium).
		Set("Big", hivegen.RegBinary, big)

	r, err := OpenBytes(hivegen.Build(root, hivegen.Options{}), Options{})
	require.NoError(t, err)
	id, err := r.Find("Data")
	require.NoError(t, err)

	for name, want := range map[string][]byte{"Empty": nil, "Medium": medium, "Big": big} {
		v, err := r.GetValue(id, name)
		require.NoError(t, err, name)
		got, err := r.ValueBytes(v)
		require.NoError(t, err, name)
		assert.Equal(t, len(want), len(got), name)
		assert.True(t, bytes.Equal(want, got), name)
	}
}

func TestMaxCellSize(t *testing.T) {
	root := &hivegen.Key{Name: "ROOT"}
	root.Path("Data").Set("Medium", hivegen.RegBinary, make([]byte, 200))
	r, err := OpenBytes(hivegen.Build(root, hivegen.Options{}), Options{MaxCellSize: 100})
	require.NoError(t, err)
	id, err := r.Find("Data")
	require.NoError(t, err)
	v, err := r.GetValue(id, "Medium")
	require.NoError(t, err)
	_, err = r.ValueBytes(v)
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindCorrupt))
}

func TestTolerantTruncatedBins(t *testing.T) {
	root := &hivegen.Key{Name: "ROOT"}
	root.Path("Select").Set("Current", hivegen.RegDWORD, hivegen.DWORD(1))
	// Push the tree past the first bin so a second bin exists.
	root.Path("Filler").Set("Blob", hivegen.RegBinary, make([]byte, 6000))
	img := hivegen.Build(root, hivegen.Options{})
	require.Greater(t, len(img), format.HeaderSize+format.HBINAlignment)

	// Corrupt the signature of the last bin.
	last := format.HeaderSize
	for off := format.HeaderSize; off < len(img); {
		last = off
		off += int(buf.U32LE(img[off+format.HBINSizeOffset:]))
	}
	broken := bytes.Clone(img)
	copy(broken[last:], "XXXX")

	_, err := OpenBytes(broken, Options{})
	require.Error(t, err)

	r, err := OpenBytes(broken, Options{Tolerant: true})
	require.NoError(t, err)
	assert.Less(t, r.Info().HBINs, format.CountHBINs(img[format.HeaderSize:]))
}

func TestClosedReader(t *testing.T) {
	r, err := OpenBytes(hivegen.Build(sampleTree(), hivegen.Options{}), Options{})
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.Root()
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.ErrKindState))
	_, err = r.Find("Select")
	assert.True(t, types.IsKind(err, types.ErrKindState))
}
