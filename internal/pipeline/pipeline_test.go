package pipeline

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/yolo-annotate/internal/annotate"
	"github.com/ironsheep/yolo-annotate/internal/catalog"
	"github.com/ironsheep/yolo-annotate/internal/config"
	"github.com/ironsheep/yolo-annotate/internal/darknet"
	"github.com/ironsheep/yolo-annotate/internal/imaging"
)

type fakeDetector struct {
	results [][]darknet.Detection
	err     error
	calls   [][]string
}

func (f *fakeDetector) Detect(ctx context.Context, images []string) ([][]darknet.Detection, error) {
	f.calls = append(f.calls, images)
	return f.results, f.err
}

var classNames = []string{"person", "bicycle", "car", "motorbike", "aeroplane", "bus", "train", "truck", "boat", "traffic light"}

func det(name string, x, y int) darknet.Detection {
	return darknet.Detection{Name: name, Prob: 90, Box: darknet.Box{X: x, Y: y, W: 40, H: 40}}
}

func writeImages(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, "in"+string(rune('a'+i))+".png")
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 200, 150))))
		require.NoError(t, f.Close())
		paths = append(paths, path)
	}
	return paths
}

func newPipeline(t *testing.T, d Detector, strict bool, opts Options) *Pipeline {
	a := annotate.New(catalog.New(classNames), annotate.Options{Strict: strict})
	opts.Seed = 7
	return New(logs.NewTestingLog(t), d, a, nil, opts)
}

func TestRun_SavesEveryImage(t *testing.T) {
	images := writeImages(t, 3)
	d := &fakeDetector{results: [][]darknet.Detection{
		{det("person", 10, 30)},
		{},
		{det("car", 50, 60), det("bus", 100, 80)},
	}}
	p := newPipeline(t, d, false, Options{})
	base := filepath.Join(t.TempDir(), "out")

	report, err := p.Run(context.Background(), images, base)
	require.NoError(t, err)
	require.NoError(t, report.Wait())
	assert.Equal(t, 0, report.Failed())
	require.Len(t, report.Items, 3)
	require.Len(t, d.calls, 1)
	assert.Equal(t, images, d.calls[0])

	for i, it := range report.Items {
		assert.Equal(t, i, it.Index)
		assert.Equal(t, images[i], it.Path)
		assert.Equal(t, imaging.SavePath(base, i), it.SavedPath)
		assert.FileExists(t, it.SavedPath)
		assert.Len(t, it.Labels, len(it.Detections))
		assert.Nil(t, it.Image)
	}
	assert.Equal(t, base+"0.png", report.Items[0].SavedPath)
	assert.Equal(t, base+"2.png", report.Items[2].SavedPath)
}

func TestRun_LiteralSavePath(t *testing.T) {
	images := writeImages(t, 3)
	d := &fakeDetector{results: make([][]darknet.Detection, 3)}
	p := newPipeline(t, d, false, Options{})
	out := filepath.Join(t.TempDir(), "out.png")

	report, err := p.Run(context.Background(), images, out)
	require.NoError(t, err)
	require.NoError(t, report.Wait())
	for _, it := range report.Items {
		assert.Equal(t, out, it.SavedPath)
	}
	assert.FileExists(t, out)
}

func TestRun_NoSavePath(t *testing.T) {
	images := writeImages(t, 1)
	d := &fakeDetector{results: [][]darknet.Detection{{det("person", 10, 30)}}}
	p := newPipeline(t, d, false, Options{KeepImages: true})

	report, err := p.Run(context.Background(), images, "")
	require.NoError(t, err)
	require.NoError(t, report.Wait())
	assert.Empty(t, report.Items[0].SavedPath)
	require.NotNil(t, report.Items[0].Image)
	assert.Equal(t, 200, report.Items[0].Image.Bounds().Dx())
}

func TestRun_BatchColorScope(t *testing.T) {
	images := writeImages(t, 2)
	d := &fakeDetector{results: [][]darknet.Detection{
		{det("person", 10, 30), det("truck", 60, 30)},
		{det("person", 10, 30), det("truck", 60, 30)},
	}}
	p := newPipeline(t, d, false, Options{ColorScope: config.ScopeBatch})

	report, err := p.Run(context.Background(), images, "")
	require.NoError(t, err)
	require.NotNil(t, report.Colors)
	assert.Equal(t, len(classNames), report.Colors.Len())
	assert.Equal(t, report.Items[0].Labels[0].Color, report.Items[1].Labels[0].Color)
	assert.Equal(t, report.Items[0].Labels[1].Color, report.Items[1].Labels[1].Color)

	want, _ := report.Colors.Color(0)
	assert.Equal(t, want, report.Items[0].Labels[0].Color)
}

func TestRun_ImageColorScope(t *testing.T) {
	images := writeImages(t, 2)
	var all []darknet.Detection
	for i, name := range classNames {
		all = append(all, det(name, 5+i*15, 30))
	}
	d := &fakeDetector{results: [][]darknet.Detection{all, all}}
	p := newPipeline(t, d, false, Options{ColorScope: config.ScopeImage})

	report, err := p.Run(context.Background(), images, "")
	require.NoError(t, err)
	assert.Nil(t, report.Colors)

	same := true
	for i := range all {
		if report.Items[0].Labels[i].Color != report.Items[1].Labels[i].Color {
			same = false
		}
	}
	assert.False(t, same, "each image should get its own shuffle")
}

func TestRun_PerItemFailures(t *testing.T) {
	images := writeImages(t, 2)
	images = append(images, filepath.Join(t.TempDir(), "missing.png"))
	d := &fakeDetector{results: [][]darknet.Detection{
		{det("person", 10, 30)},
		{det("unicorn", 10, 30)},
		{},
	}}
	p := newPipeline(t, d, true, Options{})

	report, err := p.Run(context.Background(), images, "")
	require.NoError(t, err, "per-image errors must not abort the batch")

	assert.True(t, report.Items[0].OK())
	var uce *annotate.UnknownClassError
	assert.True(t, errors.As(report.Items[1].Err, &uce))
	assert.Error(t, report.Items[2].Err)
	assert.Equal(t, 2, report.Failed())

	err = report.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image 2")
	assert.True(t, errors.As(err, &uce))
}

func TestRun_UnknownClassWarning(t *testing.T) {
	images := writeImages(t, 1)
	d := &fakeDetector{results: [][]darknet.Detection{{det("unicorn", 10, 30)}}}
	p := newPipeline(t, d, false, Options{})

	report, err := p.Run(context.Background(), images, "")
	require.NoError(t, err)
	assert.True(t, report.Items[0].OK())
	assert.Len(t, report.Items[0].Warnings, 1)
}

func TestRun_SaveFailureRecorded(t *testing.T) {
	images := writeImages(t, 1)
	d := &fakeDetector{results: [][]darknet.Detection{{}}}
	p := newPipeline(t, d, false, Options{})

	report, err := p.Run(context.Background(), images, filepath.Join(t.TempDir(), "no", "such", "dir", "out"))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Failed(), "saves have not been awaited yet")

	assert.Error(t, report.Wait())
	assert.Equal(t, 1, report.Failed())
}

func TestRun_DetectorErrorAborts(t *testing.T) {
	pe := &darknet.ProcessError{Command: "darknet", Err: errors.New("boom")}
	p := newPipeline(t, &fakeDetector{err: pe}, false, Options{})

	report, err := p.Run(context.Background(), []string{"a.png"}, "")
	assert.Nil(t, report)
	assert.ErrorIs(t, err, pe)
}

func TestRun_CountMismatch(t *testing.T) {
	p := newPipeline(t, &fakeDetector{results: [][]darknet.Detection{{}}}, false, Options{})

	_, err := p.Run(context.Background(), []string{"a.png", "b.png"}, "")
	var ce *darknet.CountMismatchError
	assert.True(t, errors.As(err, &ce))
}

func TestRun_CancelledContext(t *testing.T) {
	images := writeImages(t, 2)
	p := newPipeline(t, &fakeDetector{results: make([][]darknet.Detection, 2)}, false, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Run(ctx, images, "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed())
	assert.ErrorIs(t, report.Items[0].Err, context.Canceled)
}

func TestRunString(t *testing.T) {
	images := writeImages(t, 2)
	d := &fakeDetector{results: make([][]darknet.Detection, 2)}
	p := newPipeline(t, d, false, Options{})

	report, err := p.RunString(context.Background(), images[0]+"\r\n"+images[1]+"\r\n", "")
	require.NoError(t, err)
	assert.Len(t, report.Items, 2)
	assert.Equal(t, images, d.calls[0])
}

func TestRun_NoDetector(t *testing.T) {
	p := newPipeline(t, nil, false, Options{})
	assert.False(t, p.HasDetector())

	_, err := p.Run(context.Background(), []string{"a.png"}, "")
	assert.Error(t, err)
}
