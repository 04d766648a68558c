package ai

import "fmt"

// PromptOptions carries the pedagogical metadata used to shape the prompt.
type PromptOptions struct {
	Language     string
	Subject      string
	StudentLevel string
	Topics       string
	Constraints  string
	Style        string
}

// BuildPromptSections assembles the structured feedback prompt from the
// problem statement, the submitted code and the grading metadata. It is a
// pure function: identical inputs always produce identical sections.
func BuildPromptSections(readme, code string, opts PromptOptions) Sections {
	context := fmt.Sprintf(`### Actúa como un profesor universitario de Ingeniería Informática, especialista en evaluar código escrito en %s
para el curso %s. Enseñas a estudiantes de nivel %s y tu objetivo es guiarlos para mejorar.

### Contexto: El estudiante ha entregado una solución en %s, correspondiente a un ejercicio que cubre los temas: %s.
Tu retroalimentación debe ayudar a mejorar su comprensión, resolver errores y desarrollar buenas prácticas.
Debes tomar en cuenta lo siguiente: %s`,
		opts.Language, opts.Subject, opts.StudentLevel, opts.Language, opts.Topics, opts.Constraints)

	instruction := fmt.Sprintf(`### Analiza el código proporcionado por el estudiante y genera una retroalimentación formativa y constructiva, basada en criterios pedagógicos definidos.
Actúa sabiendo que los criterios de una buena retroalimentación son los siguientes:

#### 1.Sugerencias generales: Buenas prácticas en %s (qué hacer y qué evitar).
#### 2.Verificación de requisitos: ¿El código cumple lo solicitado en el enunciado?
#### 3.Explicación con ejemplos: Explica brevemente los temas involucrados(%s), usando fragmentos de código si es necesario.
#### 4.Errores detectados: Errores de sintaxis, lógica o semántica.
#### 5.Mejoras y correcciones: Recomendaciones para optimizar o mejorar el código.
#### 6.Estilo y legibilidad: Evalúa si sigue el estilo de codificación **%s**.
#### 7.Preguntas orientadoras: Preguntas que fomenten la reflexión del estudiante.
#### Nota final (1 al 10) Califica y justifica tu decisión brevemente.

---`,
		opts.Language, opts.Topics, opts.Style)

	input := fmt.Sprintf(`### Temas abordados: %s
### Restricciones que deben cumplirse: %s
### Estilo requerido en el codigo: %s
---
### Enunciado del problema:
%s
---
### Código enviado por el estudiante:
`+"```%s\n%s\n```"+`

### Instrucciones de formato:
Organiza la retroalimentación con base en los siguientes criterios:
- 🟢 Sugerencias generales
- ✅ Verificación de requisitos
- 📖 Explicación con ejemplos
- 🚨 Errores detectados
- 🛠️ Mejoras y correcciones
- ✍️ Estilo y legibilidad
- 🤔 Preguntas orientadoras
- 📊 Nota final

---
### Utiliza un lenguaje profesional, claro, accesible y motivador, como lo haría un buen profesor que quiere que el estudiante aprenda y se sienta acompañado en su proceso.
### Si brindas fragmentos de codigo, debe seguir el estilo de codificación **%s**.
---
Usa Markdown como formato de salida.
**IMPORTANTE:** Al final de la retroalimentación, incluye siempre la línea:
**NOTA_RETROALIMENTACION: [X]**
Donde X es la nota final (puede ser decimal como 8.5). No pongas ningún otro texto en esa línea.
Ejemplo: **NOTA_RETROALIMENTACION: [7.5]**
---`,
		opts.Topics, opts.Constraints, opts.Style, readme, opts.Language, code, opts.Style)

	return Sections{
		Context:     context,
		Instruction: instruction,
		Input:       input,
		UserPrompt:  "Evalúa este código y proporciona una retroalimentación pedagógica.",
	}
}
