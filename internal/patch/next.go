package patch

// NextPackage is the package nextpatch targets by default.
const NextPackage = "next"

const writeFileSearch = "writeFile or writeFileSync"

// Next.js rewrites the project's tsconfig.json from
// writeConfigurationDefaults on every dev/build start. Both the ESM and the
// CommonJS builds carry the call; their compiled shapes differ.
const (
	esmWriteFile = `(?:await )?(?:fs\.)?writeFile(?:Sync)?\(.*stringify\(`
	cjsWriteFile = `(?:await )?(?:\(0, )?(?:_fs\.)?(?:promises\.)?writeFile(?:Sync)?(?:\))?\(.*stringify\(`
)

// NextDescriptors returns the files patched in the next package, in order.
func NextDescriptors() []Descriptor {
	return []Descriptor{
		{
			Path:      "dist/esm/lib/typescript/writeConfigurationDefaults.js",
			Transform: CommentOut(writeFileSearch, esmWriteFile),
		},
		{
			Path:      "dist/lib/typescript/writeConfigurationDefaults.js",
			Transform: CommentOut(writeFileSearch, cjsWriteFile),
		},
	}
}
