package store

import (
	"fmt"
	"os"

	"github.com/CageChen/codespace/internal/vpath"
	"gopkg.in/yaml.v3"
)

// Seed adds nodes, and their subtrees, beneath the root. Node paths are
// derived from names; any Path already set on a node is ignored. The whole
// seed is applied under one lock and the first conflict aborts it.
func (s *Store) Seed(nodes []FileNode) error {
	var events []Event
	s.mu.Lock()
	err := s.seedInto(vpath.Root, nodes, &events)
	s.mu.Unlock()

	s.publish(events...)
	return err
}

func (s *Store) seedInto(parent string, nodes []FileNode, events *[]Event) error {
	for _, n := range nodes {
		p := vpath.Join(parent, n.Name)
		path, err := s.insert("seed", p, n.IsDir(), n.Content)
		if err != nil {
			return err
		}
		*events = append(*events, Event{Type: EventCreate, Path: path, IsDir: n.IsDir()})
		if n.IsDir() {
			if err := s.seedInto(path, n.Children, events); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadSeedFile reads a YAML list of FileNode trees.
func LoadSeedFile(path string) ([]FileNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var nodes []FileNode
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return nodes, nil
}

// DefaultCurrentFile is the file the editor opens on a fresh workspace.
const DefaultCurrentFile = "/examples/hello.py"

// DefaultTree returns the starter workspace.
func DefaultTree() []FileNode {
	return []FileNode{
		{
			Name: "examples",
			Type: TypeDirectory,
			Children: []FileNode{
				{Name: "hello.py", Type: TypeFile, Content: helloPy},
				{Name: "calculator.js", Type: TypeFile, Content: calculatorJS},
			},
		},
		{
			Name: "my_project",
			Type: TypeDirectory,
			Children: []FileNode{
				{Name: "main.py", Type: TypeFile, Content: mainPy},
				{Name: "app.js", Type: TypeFile, Content: appJS},
			},
		},
		{Name: "README.md", Type: TypeFile, Content: readme},
	}
}

const helloPy = `# Python Hello World
print("🐍 Hello from Python!")

def greet(name):
    """Greet someone with a personalized message"""
    return f"Hello, {name}! Welcome to the workspace."

# Try this in the terminal: python examples/hello.py
if __name__ == "__main__":
    print(greet("Developer"))

    numbers = [1, 2, 3, 4, 5]
    squares = [x**2 for x in numbers]
    print(f"Original numbers: {numbers}")
    print(f"Squared numbers: {squares}")
`

const calculatorJS = `// JavaScript Calculator
console.log("🚀 JavaScript Calculator Demo");

class Calculator {
    add(a, b) { return a + b; }
    subtract(a, b) { return a - b; }
    multiply(a, b) { return a * b; }
    divide(a, b) {
        if (b === 0) throw new Error("Division by zero!");
        return a / b;
    }
}

// Try running: node examples/calculator.js
const calc = new Calculator();

console.log("➕ Addition: 15 + 25 =", calc.add(15, 25));
console.log("➖ Subtraction: 50 - 12 =", calc.subtract(50, 12));
console.log("✖️  Multiplication: 8 × 7 =", calc.multiply(8, 7));
console.log("➗ Division: 100 ÷ 4 =", calc.divide(100, 4));

try {
    calc.divide(10, 0);
} catch (error) {
    console.error("❌ Error caught:", error.message);
}
`

const mainPy = `#!/usr/bin/env python3
"""
Your Python Project Template
"""

def main():
    print("🎉 Welcome to your Python project!")

    data = [1, 2, 3, 4, 5]
    result = sum(data)
    average = result / len(data)

    print(f"Data: {data}")
    print(f"Sum: {result}")
    print(f"Average: {average}")

    return "Project completed successfully!"

if __name__ == "__main__":
    result = main()
    print(f"\n✅ {result}")
`

const appJS = `/**
 * Your JavaScript Project Template
 */

console.log("🎉 Welcome to your JavaScript project!");

class ProjectManager {
    constructor(name) {
        this.name = name;
        this.tasks = [];
    }

    addTask(task) {
        this.tasks.push({ id: Date.now(), description: task, completed: false });
        console.log(` + "`✅ Added task: ${task}`" + `);
    }

    listTasks() {
        console.log(` + "`\\n📋 Tasks for ${this.name}:`" + `);
        this.tasks.forEach((task, index) => {
            const status = task.completed ? "✅" : "⏳";
            console.log(` + "`  ${index + 1}. ${status} ${task.description}`" + `);
        });
    }
}

const project = new ProjectManager("My Awesome Project");
project.addTask("Set up project structure");
project.addTask("Write core functionality");
project.listTasks();
`

const readme = "# CLI Coding Agent\n\n" +
	"Welcome to your web-based development environment.\n\n" +
	"## Quick Start\n\n" +
	"Start with the `examples/` folder:\n\n" +
	"- `hello.py` - Python basics\n" +
	"- `calculator.js` - JavaScript class example\n\n" +
	"Use the `my_project/` folder to build your own applications.\n\n" +
	"## Available Commands\n\n" +
	"```bash\n" +
	"ls [path]             # List directory contents\n" +
	"pwd                   # Show current directory\n" +
	"cat <file>            # Display file contents\n" +
	"mkdir <name>          # Create directory\n" +
	"touch <file>          # Create empty file\n" +
	"rm <file>             # Delete file or directory\n" +
	"python <file>         # Run Python file\n" +
	"node <file>           # Run JavaScript file\n" +
	"help                  # Show all commands\n" +
	"clear                 # Clear terminal\n" +
	"date                  # Show current date\n" +
	"```\n\n" +
	"Happy coding! 🎉\n"
