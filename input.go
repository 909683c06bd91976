package miroflow

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fileTypeByExt maps task-file extensions to the human-readable type name
// used in the advisory note. Unknown extensions fall back to the bare
// extension text.
var fileTypeByExt = map[string]string{
	".jpg":    "Image",
	".jpeg":   "Image",
	".png":    "Image",
	".gif":    "Image",
	".webp":   "Image",
	".txt":    "Text",
	".md":     "Text",
	".json":   "Json",
	".jsonl":  "Json",
	".jsonld": "Json",
	".xlsx":   "Excel",
	".xls":    "Excel",
	".csv":    "Excel",
	".pdf":    "PDF",
	".doc":    "Document",
	".docx":   "Document",
	".html":   "HTML",
	".htm":    "HTML",
	".ppt":    "PPT",
	".pptx":   "PPT",
	".wav":    "WAV",
	".mp3":    "MP3",
	".m4a":    "MP3",
	".zip":    "Zip",
}

// FileTypeOf returns the advisory type name for a task file path.
func FileTypeOf(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := fileTypeByExt[ext]; ok {
		return t
	}
	return strings.TrimPrefix(ext, ".")
}

// ProcessInput normalizes the task description and, when a task file is
// attached, appends the advisory note telling the model how to reach it.
// Normalization is NFC so visually identical inputs hash and cache the same.
func ProcessInput(description, fileName string) string {
	out := norm.NFC.String(description)
	if fileName == "" {
		return out
	}
	fileType := FileTypeOf(fileName)
	out += fmt.Sprintf("\nNote: A %s file '%s' is associated with this task. You should use available tools to read its content if necessary through %s. Additionally, if you need to analyze this file by Linux commands or python codes, you should upload it to the sandbox first. Files in the sandbox cannot be accessed by other tools.\n\n", fileType, fileName, fileName)
	return out
}
