package timeseries

// Component describes where a model component's settings live in the
// timeseries section and where its history files are archived.
type Component struct {
	// Name is passed to the generator, e.g. "cam".
	Name string
	// KeyPrefix prefixes the per-component keys: <prefix>_vars,
	// <prefix>_hist_str, <prefix>_start_years and <prefix>_end_years.
	KeyPrefix string
	// Dir is the component's directory under <CESM_output_dir>/<case>.
	Dir string
}

// DeriveKey is the key listing variables derived for the component.
func (c Component) DeriveKey() string { return "derive_vars_" + c.Name }

// VarsKey is the key listing variables to extract.
func (c Component) VarsKey() string { return c.KeyPrefix + "_vars" }

// HistKey is the key holding the history file naming pattern.
func (c Component) HistKey() string { return c.KeyPrefix + "_hist_str" }

// StartYearsKey is the key holding the per-case start years.
func (c Component) StartYearsKey() string { return c.KeyPrefix + "_start_years" }

// EndYearsKey is the key holding the per-case end years.
func (c Component) EndYearsKey() string { return c.KeyPrefix + "_end_years" }

// DefaultComponents is the CESM component table, in generation order.
var DefaultComponents = []Component{
	{Name: "cam", KeyPrefix: "atm", Dir: "atm"},
	{Name: "lnd", KeyPrefix: "lnd", Dir: "lnd"},
	{Name: "ocn", KeyPrefix: "ocn", Dir: "ocn"},
	{Name: "cice", KeyPrefix: "cice", Dir: "cice"},
	{Name: "glc", KeyPrefix: "glc", Dir: "glc"},
}

// VerticalCoord is the vertical coordinate name handed to the generator.
// TODO: land, ocean, sea-ice and land-ice need their own coordinate names
// once their generators stop assuming the atmosphere's.
const VerticalCoord = "lev"
