// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

// repairJSON fixes the formatting slips small models make in JSON mode:
// a key missing its opening quote (`, confidence":`) and a trailing comma
// before a closing brace or bracket.
func repairJSON(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+8)

	for i := 0; i < len(in); {
		ch := in[i]

		if ch == ',' {
			// Drop the comma if only whitespace separates it from a closer.
			j := skipSpace(in, i+1)
			if j < len(in) && (in[j] == '}' || in[j] == ']') {
				i = j
				continue
			}
		}

		out = append(out, ch)
		i++
		if ch != '{' && ch != ',' {
			continue
		}

		j := skipSpace(in, i)
		out = append(out, in[i:j]...)
		i = j

		// word": means the opening quote was lost
		k := i
		for k < len(in) && (isLetter(in[k]) || in[k] == '_') {
			k++
		}
		if k > i && k+1 < len(in) && in[k] == '"' && in[k+1] == ':' {
			out = append(out, '"')
		}
	}

	return string(out)
}

func skipSpace(in []rune, i int) int {
	for i < len(in) && (in[i] == ' ' || in[i] == '\n' || in[i] == '\t' || in[i] == '\r') {
		i++
	}
	return i
}
