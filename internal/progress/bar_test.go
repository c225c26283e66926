package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBar_Render(t *testing.T) {
	var buf bytes.Buffer
	b := newBar(&buf, "noaa18", 20)

	b.Update(0.5)
	out := buf.String()
	assert.Contains(t, out, "\rnoaa18   50% [##########          ]")
	assert.Contains(t, out, ":", "an elapsed:left estimate follows the bar")
}

func TestBar_SkipsUnchangedPercentage(t *testing.T) {
	var buf bytes.Buffer
	b := newBar(&buf, "", 20)

	b.Update(0.101)
	n := buf.Len()
	assert.Greater(t, n, 0)
	b.Update(0.104)
	assert.Equal(t, n, buf.Len())

	b.Update(0.2)
	assert.Greater(t, buf.Len(), n)
}

func TestBar_ClampsAndFinishes(t *testing.T) {
	var buf bytes.Buffer
	b := newBar(&buf, "", 20)

	b.Update(7)
	assert.Contains(t, buf.String(), "100%")

	b.Finish()
	b.Finish()
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))

	n := buf.Len()
	b.Update(0.3)
	assert.Equal(t, n, buf.Len())
}

func TestBar_FinishFillsBar(t *testing.T) {
	var buf bytes.Buffer
	b := newBar(&buf, "metop-a", 20)

	b.Update(0.42)
	b.Finish()
	out := buf.String()
	assert.Contains(t, out, "100% [####################]")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestBarWidth(t *testing.T) {
	assert.Equal(t, 80-len("noaa18")-reserved, barWidth(80, "noaa18"))
	assert.Equal(t, minBarWidth, barWidth(20, "noaa18"))
}
