package edmx

// Connection string keywords.
const (
	KeywordMetadata                 = "metadata"
	KeywordProvider                 = "provider"
	KeywordProviderConnectionString = "provider connection string"
	KeywordName                     = "name"
)

// Schema resource extensions.
const (
	ExtConceptual = "csdl"
	ExtStorage    = "ssdl"
	ExtMapping    = "msl"
	ExtEDMX       = "edmx"
)

// Output formats understood by the CLI.
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatCSDL = "csdl"
	FormatEDMX = "edmx"
)

// Formats lists the output formats in display order.
var Formats = []string{FormatText, FormatYAML, FormatCSDL, FormatEDMX}
