package manifest

const (
	ReadmeFileName = "README.md"
	ReadmeNotFound = "README.md not found"
)

// ReadReadme returns the README text and whether it exists. Text beyond
// MaxFileSize is dropped.
func ReadReadme(dir string) (string, bool, error) {
	data, found, _, err := readRootFile(dir, ReadmeFileName, MaxFileSize)
	if err != nil {
		return "", false, err
	}
	if !found {
		return ReadmeNotFound, false, nil
	}
	return string(data), true, nil
}
