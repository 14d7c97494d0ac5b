// Package factory provides a small generic registry used to build modules
// such as metrics sinks from configuration. A module is described by a type
// string and a map of raw settings; each factory decodes the settings into a
// typed struct and returns the concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[io.Writer]()
//	reg.Register("file", func(conf map[string]any) (io.Writer, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return os.Create(c.Path)
//	})
//	w, err := reg.Create(factory.ModuleConfig{Type: "file", Conf: map[string]any{"path": "steps.log"}})
package factory
