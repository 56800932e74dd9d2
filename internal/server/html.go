package server

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Moodface Monitor</title>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { background: #111; color: #eee; font-family: sans-serif; margin: 0; }
        .app { display: grid; grid-template-columns: 660px 1fr; gap: 16px; padding: 16px; }
        .panel { background: #1c1c1c; border-radius: 8px; padding: 12px; }
        h2 { margin: 0 0 8px; font-size: 16px; }
        #stream { width: 640px; height: 480px; background: #000; display: block; }
        .stat { display: inline-block; margin-right: 24px; }
        .stat-value { font-size: 22px; font-weight: bold; }
        #events { font-family: monospace; font-size: 12px; max-height: 420px; overflow-y: auto; }
        .happy { color: #0c0; } .surprised { color: #ffa500; } .sleepy { color: #66f; }
        .sad { color: #f33; } .neutral { color: #39f; }
    </style>
</head>
<body>
<div class="app">
    <div class="panel">
        <h2>Avatar</h2>
        <img id="stream" src="/stream" alt="Avatar stream">
    </div>
    <div class="panel">
        <h2>Status</h2>
        <div class="stat"><div>Emotion</div><div class="stat-value" id="emotion">--</div></div>
        <div class="stat"><div>FPS</div><div class="stat-value" id="fps">--</div></div>
        <div class="stat"><div>Frames</div><div class="stat-value" id="frames">--</div></div>
        <div class="stat"><div>No face</div><div class="stat-value" id="noface">--</div></div>
        <h2 style="margin-top:16px">Events</h2>
        <div id="events"></div>
    </div>
</div>
<script>
const events = document.getElementById('events');
const source = new EventSource('/api/emotions/stream');
source.onmessage = (msg) => {
    const ev = JSON.parse(msg.data);
    const row = document.createElement('div');
    row.className = ev.emotion;
    row.textContent = '#' + ev.frame_number + ' ' + ev.emotion.toUpperCase() + ' (' + ev.rule + ')';
    events.prepend(row);
    while (events.childElementCount > 200) events.lastChild.remove();
    const label = document.getElementById('emotion');
    label.textContent = ev.emotion.toUpperCase();
    label.className = 'stat-value ' + ev.emotion;
};
const status = new EventSource('/api/status/stream');
status.onmessage = (msg) => {
    const s = JSON.parse(msg.data);
    document.getElementById('fps').textContent = s.monitor.current_fps.toFixed(1);
    document.getElementById('frames').textContent = s.monitor.frames_processed;
    document.getElementById('noface').textContent = s.monitor.no_face_frames;
};
</script>
</body>
</html>
`
