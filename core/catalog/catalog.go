// Package catalog is the exhaustive, version-stable enumeration of every
// metadata field, segment, chunk, and box the engine recognises and clears.
// It holds no processing logic; the sanitizer and remuxer consult these
// tables to decide removal, and the tests scan outputs against them.
//
// An incomplete catalog is a privacy leak, not a cosmetic bug: the tables
// below cover entire tag namespaces (whole EXIF IFDs, whole JPEG APP
// segments, whole MP4 metadata subtrees), so a tag the tables do not name
// individually is still removed with its enclosing structure.
package catalog

// Category classifies what a tag reveals.
type Category int

const (
	BasicInfo     Category = iota // titles, descriptions, authorship, timestamps
	CameraDetails                 // device identity and capture settings
	Location                      // geolocation, the highest-sensitivity class
	Technical                     // structural or encoding details
)

func (c Category) String() string {
	return [...]string{"BasicInfo", "CameraDetails", "Location", "Technical"}[c]
}

// TagEntry names one EXIF tag within an IFD namespace.
type TagEntry struct {
	ID       uint16
	Name     string
	Category Category
}

// ──────────────────────────────────────────────────────────────────────────
// EXIF / TIFF tag namespaces
// ──────────────────────────────────────────────────────────────────────────

// TIFFTags enumerates IFD0/IFD1 tags.
var TIFFTags = []TagEntry{
	{0x0100, "ImageWidth", Technical},
	{0x0101, "ImageLength", Technical},
	{0x0102, "BitsPerSample", Technical},
	{0x0103, "Compression", Technical},
	{0x0106, "PhotometricInterpretation", Technical},
	{0x010E, "ImageDescription", BasicInfo},
	{0x010F, "Make", CameraDetails},
	{0x0110, "Model", CameraDetails},
	{0x0111, "StripOffsets", Technical},
	{0x0112, "Orientation", Technical},
	{0x0115, "SamplesPerPixel", Technical},
	{0x0116, "RowsPerStrip", Technical},
	{0x0117, "StripByteCounts", Technical},
	{0x011A, "XResolution", Technical},
	{0x011B, "YResolution", Technical},
	{0x011C, "PlanarConfiguration", Technical},
	{0x0128, "ResolutionUnit", Technical},
	{0x012D, "TransferFunction", Technical},
	{0x0131, "Software", BasicInfo},
	{0x0132, "DateTime", BasicInfo},
	{0x013B, "Artist", BasicInfo},
	{0x013E, "WhitePoint", Technical},
	{0x013F, "PrimaryChromaticities", Technical},
	{0x0201, "ThumbJPEGInterchangeFormat", Technical},
	{0x0202, "ThumbJPEGInterchangeFormatLength", Technical},
	{0x0211, "YCbCrCoefficients", Technical},
	{0x0212, "YCbCrSubSampling", Technical},
	{0x0213, "YCbCrPositioning", Technical},
	{0x0214, "ReferenceBlackWhite", Technical},
	{0x8298, "Copyright", BasicInfo},
	{0x8769, "ExifIFDPointer", Technical},
	{0x8825, "GPSInfoIFDPointer", Location},
	{0x9C9B, "XPTitle", BasicInfo},
	{0x9C9C, "XPComment", BasicInfo},
	{0x9C9D, "XPAuthor", BasicInfo},
	{0x9C9E, "XPKeywords", BasicInfo},
	{0x9C9F, "XPSubject", BasicInfo},
}

// ExifTags enumerates the Exif sub-IFD.
var ExifTags = []TagEntry{
	{0x829A, "ExposureTime", CameraDetails},
	{0x829D, "FNumber", CameraDetails},
	{0x8822, "ExposureProgram", CameraDetails},
	{0x8824, "SpectralSensitivity", CameraDetails},
	{0x8827, "ISOSpeedRatings", CameraDetails},
	{0x8828, "OECF", Technical},
	{0x9000, "ExifVersion", Technical},
	{0x9003, "DateTimeOriginal", BasicInfo},
	{0x9004, "DateTimeDigitized", BasicInfo},
	{0x9101, "ComponentsConfiguration", Technical},
	{0x9102, "CompressedBitsPerPixel", Technical},
	{0x9201, "ShutterSpeedValue", CameraDetails},
	{0x9202, "ApertureValue", CameraDetails},
	{0x9203, "BrightnessValue", CameraDetails},
	{0x9204, "ExposureBiasValue", CameraDetails},
	{0x9205, "MaxApertureValue", CameraDetails},
	{0x9206, "SubjectDistance", CameraDetails},
	{0x9207, "MeteringMode", CameraDetails},
	{0x9208, "LightSource", CameraDetails},
	{0x9209, "Flash", CameraDetails},
	{0x920A, "FocalLength", CameraDetails},
	{0x9214, "SubjectArea", Technical},
	{0x927C, "MakerNote", Technical},
	{0x9286, "UserComment", BasicInfo},
	{0x9290, "SubSecTime", BasicInfo},
	{0x9291, "SubSecTimeOriginal", BasicInfo},
	{0x9292, "SubSecTimeDigitized", BasicInfo},
	{0xA000, "FlashpixVersion", Technical},
	{0xA001, "ColorSpace", Technical},
	{0xA002, "PixelXDimension", Technical},
	{0xA003, "PixelYDimension", Technical},
	{0xA004, "RelatedSoundFile", Technical},
	{0xA005, "InteroperabilityIFDPointer", Technical},
	{0xA20B, "FlashEnergy", CameraDetails},
	{0xA20C, "SpatialFrequencyResponse", Technical},
	{0xA20E, "FocalPlaneXResolution", Technical},
	{0xA20F, "FocalPlaneYResolution", Technical},
	{0xA210, "FocalPlaneResolutionUnit", Technical},
	{0xA214, "SubjectLocation", Technical},
	{0xA215, "ExposureIndex", CameraDetails},
	{0xA217, "SensingMethod", Technical},
	{0xA300, "FileSource", Technical},
	{0xA301, "SceneType", Technical},
	{0xA302, "CFAPattern", Technical},
	{0xA401, "CustomRendered", Technical},
	{0xA402, "ExposureMode", CameraDetails},
	{0xA403, "WhiteBalance", CameraDetails},
	{0xA404, "DigitalZoomRatio", CameraDetails},
	{0xA405, "FocalLengthIn35mmFilm", CameraDetails},
	{0xA406, "SceneCaptureType", CameraDetails},
	{0xA407, "GainControl", CameraDetails},
	{0xA408, "Contrast", CameraDetails},
	{0xA409, "Saturation", CameraDetails},
	{0xA40A, "Sharpness", CameraDetails},
	{0xA40B, "DeviceSettingDescription", Technical},
	{0xA40C, "SubjectDistanceRange", CameraDetails},
	{0xA420, "ImageUniqueID", Technical},
	{0xA433, "LensMake", CameraDetails},
	{0xA434, "LensModel", CameraDetails},
}

// GPSTags enumerates the GPS sub-IFD. The whole namespace is Location.
var GPSTags = []TagEntry{
	{0x0000, "GPSVersionID", Location},
	{0x0001, "GPSLatitudeRef", Location},
	{0x0002, "GPSLatitude", Location},
	{0x0003, "GPSLongitudeRef", Location},
	{0x0004, "GPSLongitude", Location},
	{0x0005, "GPSAltitudeRef", Location},
	{0x0006, "GPSAltitude", Location},
	{0x0007, "GPSTimeStamp", Location},
	{0x0008, "GPSSatelites", Location},
	{0x0009, "GPSStatus", Location},
	{0x000A, "GPSMeasureMode", Location},
	{0x000B, "GPSDOP", Location},
	{0x000C, "GPSSpeedRef", Location},
	{0x000D, "GPSSpeed", Location},
	{0x000E, "GPSTrackRef", Location},
	{0x000F, "GPSTrack", Location},
	{0x0010, "GPSImgDirectionRef", Location},
	{0x0011, "GPSImgDirection", Location},
	{0x0012, "GPSMapDatum", Location},
	{0x0013, "GPSDestLatitudeRef", Location},
	{0x0014, "GPSDestLatitude", Location},
	{0x0015, "GPSDestLongitudeRef", Location},
	{0x0016, "GPSDestLongitude", Location},
	{0x0017, "GPSDestBearingRef", Location},
	{0x0018, "GPSDestBearing", Location},
	{0x0019, "GPSDestDistanceRef", Location},
	{0x001A, "GPSDestDistance", Location},
	{0x001B, "GPSProcessingMethod", Location},
	{0x001C, "GPSAreaInformation", Location},
	{0x001D, "GPSDateStamp", Location},
	{0x001E, "GPSDifferential", Location},
}

// InteropTags enumerates the Interoperability sub-IFD.
var InteropTags = []TagEntry{
	{0x0001, "InteroperabilityIndex", Technical},
	{0x0002, "InteroperabilityVersion", Technical},
}

// EXIFByName indexes all EXIF namespaces by tag name.
var EXIFByName = func() map[string]TagEntry {
	m := make(map[string]TagEntry)
	for _, tbl := range [][]TagEntry{TIFFTags, ExifTags, GPSTags, InteropTags} {
		for _, e := range tbl {
			m[e.Name] = e
		}
	}
	return m
}()

// ──────────────────────────────────────────────────────────────────────────
// JPEG
// ──────────────────────────────────────────────────────────────────────────

// JPEGMetaMarkers are the segment markers removed wholesale on sanitize.
// Removing entire segments guarantees no tag outside the EXIF tables above
// (XMP, IPTC, ICC, vendor namespaces) can linger.
var JPEGMetaMarkers = map[byte]string{
	0xE1: "APP1",  // EXIF / XMP
	0xE2: "APP2",  // ICC profile / FlashPix
	0xE3: "APP3",  // vendor
	0xE4: "APP4",  // vendor
	0xE5: "APP5",  // vendor
	0xE6: "APP6",  // vendor
	0xE7: "APP7",  // vendor
	0xE8: "APP8",  // vendor
	0xE9: "APP9",  // vendor
	0xEA: "APP10", // vendor
	0xEB: "APP11", // JPEG XT
	0xEC: "APP12", // picture info / Ducky
	0xED: "APP13", // IPTC / Photoshop
	0xEE: "APP14", // Adobe
	0xEF: "APP15", // vendor
	0xFE: "COM",   // comment
}

// ──────────────────────────────────────────────────────────────────────────
// PNG
// ──────────────────────────────────────────────────────────────────────────

// PNGMetaChunks are the ancillary chunk types removed on sanitize.
var PNGMetaChunks = map[string]bool{
	"tEXt": true,
	"iTXt": true,
	"zTXt": true,
	"eXIf": true,
	"tIME": true,
	"iCCP": true,
	"sRGB": true,
	"gAMA": true,
	"cHRM": true,
	"bKGD": true,
	"hIST": true,
	"pHYs": true,
	"sBIT": true,
	"sPLT": true,
	"oFFs": true,
	"sCAL": true,
	"sTER": true,
}

// PNGStructuralChunks are kept: critical chunks, transparency, and the APNG
// animation control set (dropping those would alter the visible payload).
var PNGStructuralChunks = map[string]bool{
	"IHDR": true,
	"PLTE": true,
	"IDAT": true,
	"IEND": true,
	"tRNS": true,
	"acTL": true,
	"fcTL": true,
	"fdAT": true,
}

// ──────────────────────────────────────────────────────────────────────────
// WebP (RIFF)
// ──────────────────────────────────────────────────────────────────────────

// WebPMetaChunks are the RIFF chunk FourCCs removed on sanitize.
var WebPMetaChunks = map[string]bool{
	"EXIF": true,
	"XMP ": true,
	"ICCP": true,
}

// WebPStructuralChunks carry the compressed bitstream and animation layout.
var WebPStructuralChunks = map[string]bool{
	"VP8 ": true,
	"VP8L": true,
	"VP8X": true,
	"ALPH": true,
	"ANIM": true,
	"ANMF": true,
}

// ──────────────────────────────────────────────────────────────────────────
// ISO BMFF (MP4 / MOV)
// ──────────────────────────────────────────────────────────────────────────

// MP4MetaBoxes are dropped unconditionally wherever they appear in the tree.
var MP4MetaBoxes = map[string]bool{
	"udta": true, // user data: device, geolocation (©xyz), vendor boxes
	"meta": true, // iTunes metadata envelope
	"ilst": true, // iTunes metadata item list
	"uuid": true, // arbitrary vendor-private boxes
	"free": true, // padding that may hide stale bytes
	"skip": true,
	"wide": true,
	"chpl": true, // Nero chapter list
	"tref": true, // track references (chapter links)
}

// ITunesAtoms maps iTunes-style metadata atom names, all of which live under
// moov/udta/meta/ilst and are removed with their envelope. The table exists
// so output scans can recognise a stray atom by name.
var ITunesAtoms = map[string]string{
	"\xa9nam": "Title",
	"\xa9ART": "Artist",
	"\xa9alb": "Album",
	"\xa9day": "Year",
	"\xa9gen": "Genre",
	"\xa9cmt": "Comment",
	"\xa9lyr": "Lyrics",
	"\xa9too": "EncodingTool",
	"\xa9wrt": "Composer",
	"\xa9grp": "Grouping",
	"\xa9xyz": "GPSCoordinates",
	"aART":    "AlbumArtist",
	"cprt":    "Copyright",
	"desc":    "Description",
	"ldes":    "LongDescription",
	"tvsh":    "TVShowName",
	"tvsn":    "TVSeason",
	"tves":    "TVEpisode",
	"tven":    "TVEpisodeName",
	"purl":    "PodcastURL",
	"catg":    "Category",
	"keyw":    "Keywords",
	"cpil":    "Compilation",
	"tmpo":    "BPM",
	"hdvd":    "HDVideo",
	"stik":    "MediaKind",
	"rtng":    "ContentRating",
	"covr":    "CoverArt",
	"trkn":    "TrackNumber",
	"disk":    "DiscNumber",
	"gnre":    "GenreID",
	"sonm":    "SortName",
	"soar":    "SortArtist",
	"soal":    "SortAlbum",
	"----":    "Freeform",
}

// MP4StructuralBoxes is the retained-box allowlist: the minimal set a
// decoder needs to interpret the sample streams. The remuxer writes nothing
// outside this set, and output scans assert the same.
var MP4StructuralBoxes = map[string]bool{
	"ftyp": true,
	"moov": true,
	"mvhd": true,
	"trak": true,
	"tkhd": true,
	"edts": true,
	"elst": true,
	"mdia": true,
	"mdhd": true,
	"hdlr": true,
	"minf": true,
	"vmhd": true,
	"smhd": true,
	"dinf": true,
	"dref": true,
	"url ": true,
	"stbl": true,
	"stsd": true,
	"stts": true,
	"ctts": true,
	"stss": true,
	"stsc": true,
	"stsz": true,
	"stz2": true,
	"stco": true,
	"co64": true,
	"sgpd": true,
	"sbgp": true,
	"mdat": true,
}

// VideoSampleEntries and AudioSampleEntries are the codec fourcc allowlists.
// A sample description outside these sets means the codec configuration
// cannot be retained with confidence, and the remuxer fails closed.
var VideoSampleEntries = map[string]bool{
	"avc1": true,
	"avc3": true,
	"hvc1": true,
	"hev1": true,
	"av01": true,
	"vp09": true,
	"mp4v": true,
}

var AudioSampleEntries = map[string]bool{
	"mp4a": true,
	"ac-3": true,
	"ec-3": true,
	"alac": true,
	"Opus": true,
	"fLaC": true,
}

// PlayableHandlers are the mdia handler types retained by the remuxer.
// Text, subtitle, timed-metadata and hint tracks are dropped.
var PlayableHandlers = map[string]bool{
	"vide": true,
	"soun": true,
}
