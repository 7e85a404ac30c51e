// Package cpuspec reports the host CPU features relevant to the spectral backend's FFT kernels.
package cpuspec

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName     string
	LogicalCores  int
	PhysicalCores int
	// Vector lists the SIMD extensions the FFT and vector kernels can use, widest last.
	Vector []string
}

var vectorFeatures = []struct {
	id   cpuid.FeatureID
	name string
}{
	{cpuid.SSE2, "sse2"},
	{cpuid.AVX, "avx"},
	{cpuid.AVX2, "avx2"},
	{cpuid.FMA3, "fma3"},
	{cpuid.AVX512F, "avx512f"},
	{cpuid.ASIMD, "neon"},
}

// GetCPUSpec returns the CPU specification of the host.
func GetCPUSpec() CPUSpec {
	spec := CPUSpec{
		BrandName:     strings.TrimSpace(cpuid.CPU.BrandName),
		LogicalCores:  cpuid.CPU.LogicalCores,
		PhysicalCores: cpuid.CPU.PhysicalCores,
	}
	if spec.BrandName == "" {
		spec.BrandName = runtime.GOARCH
	}
	if spec.LogicalCores <= 0 {
		// VMs and some ARM boards report nothing
		spec.LogicalCores = runtime.NumCPU()
	}
	for _, f := range vectorFeatures {
		if cpuid.CPU.Supports(f.id) {
			spec.Vector = append(spec.Vector, f.name)
		}
	}
	return spec
}

// String formats the spec on one line.
func (c CPUSpec) String() string {
	vector := "none"
	if len(c.Vector) > 0 {
		vector = strings.Join(c.Vector, ",")
	}
	return fmt.Sprintf("%s, %d logical / %d physical cores, simd: %s",
		c.BrandName, c.LogicalCores, c.PhysicalCores, vector)
}
