package pipeline

import "strings"

// chunkText splits text into overlapping windows of at most chunkSize
// characters, each overlapping the previous by at least overlap
// characters, preferring to break at the last space within the final
// 100 characters of the window rather than cutting a word.
func chunkText(text string, chunkSize, overlap int) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	total := len(runes)

	if total <= chunkSize {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	const searchWindow = 100

	var chunks []string
	start := 0
	for start < total {
		end := start + chunkSize
		if end > total {
			end = total
		}

		if end < total {
			searchLimit := end - searchWindow
			if searchLimit < start {
				searchLimit = start
			}
			bestBreak := end
			for i := end - 1; i >= searchLimit; i-- {
				if runes[i] == ' ' {
					bestBreak = i
					break
				}
			}
			if bestBreak > start {
				end = bestBreak
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		advance := end
		if end > overlap {
			advance = end - overlap
		}
		if advance <= start {
			// Force progress: a pathological overlap/chunk_size combination
			// must never stall the cursor.
			start = end
		} else {
			start = advance
		}

		if end >= total {
			break
		}
	}
	return chunks
}
