package kernel

// Spec describes one installed kernel the user can attach a notebook to.
type Spec struct {
	Name          string
	DisplayName   string
	Language      string
	FileExtension string
	URL           string // transport endpoint for this kernel
}

// SpecLister is the kernel discovery boundary. How kernels are found (config
// file, on-disk kernelspec dirs, a gateway's REST listing) stays behind it;
// the tab only reads the result.
type SpecLister interface {
	Specs() map[string]Spec
}

// StaticSpecs is a SpecLister over a fixed table, used for config-declared
// kernels and in tests.
type StaticSpecs map[string]Spec

// Specs returns the table as-is.
func (s StaticSpecs) Specs() map[string]Spec { return s }
