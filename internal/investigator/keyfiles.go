package investigator

import "regexp"

// sourceFileExtensions are the extensions keyFiles scanning recognizes
// when scraping tool output for filenames that appear in it, beyond
// the path of an explicit read_file call.
var sourceFileExtensions = []string{"ts", "js", "go", "py", "java", "rs", "rb", "cpp", "c", "h", "tsx", "jsx", "vue", "svelte"}

var sourceFilePattern = regexp.MustCompile(`\b[\w./-]+\.(?:ts|js|go|py|java|rs|rb|cpp|c|h|tsx|jsx|vue|svelte)\b`)

const maxScannedFilesPerResult = 10

// trackKeyFiles appends newly observed file paths to keyFiles, in
// order, deduplicated. If the decision was a read_file call, its path
// argument is recorded first; the tool output is then scanned for
// source-file-looking substrings, up to maxScannedFilesPerResult new
// entries per call.
func trackKeyFiles(keyFiles []string, toolName string, path string, output string) []string {
	seen := make(map[string]bool, len(keyFiles))
	for _, f := range keyFiles {
		seen[f] = true
	}
	add := func(f string) {
		if f == "" || seen[f] {
			return
		}
		seen[f] = true
		keyFiles = append(keyFiles, f)
	}

	if toolName == "read_file" && path != "" {
		add(path)
	}

	matches := sourceFilePattern.FindAllString(output, -1)
	added := 0
	for _, m := range matches {
		if added >= maxScannedFilesPerResult {
			break
		}
		before := len(keyFiles)
		add(m)
		if len(keyFiles) > before {
			added++
		}
	}

	return keyFiles
}
